// Package htmltable flattens the portal's HTML table responses into
// header-tagged rows of plain text. The portal has no structured API: every
// search answer is a rendered HTML page, and this package is the
// normalization stage between the raw response body and the batch results.
package htmltable

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Row is one normalized table row. Header rows are flagged in place, not
// split into a separate structure, so a Row sequence preserves the full
// table exactly as it appeared in document order.
type Row struct {
	Header bool
	Cells  []string
}

// bannerMarkers identify non-data banner rows the portal injects into result
// tables. Matched against the joined, normalized row text after lowering, so
// markup differences cannot defeat the filter.
var bannerMarkers = []string{
	"logged in as",
	"blackhole route",
}

// Normalize parses raw HTML and emits every table's rows in document order.
// The parser is tolerant: malformed or unclosed tags degrade to whatever
// text is recoverable instead of failing the batch. A document without
// tables yields an empty sequence.
func Normalize(rawHTML string) []Row {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		// html.Parse recovers from almost anything; a hard error means
		// there is nothing recoverable.
		return nil
	}

	var out []Row
	for _, table := range collectTables(doc) {
		out = append(out, normalizeTable(table)...)
	}
	return out
}

// collectTables returns every table node in document order, including
// nested ones (each row is attributed to its nearest enclosing table).
func collectTables(n *html.Node) []*html.Node {
	var tables []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			tables = append(tables, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return tables
}

// normalizeTable emits the header row (if any) followed by the data rows of
// one table. Rows before the header are layout filler and skipped; a table
// with no header still emits its data rows unflagged.
func normalizeTable(table *html.Node) []Row {
	trs := tableRows(table)
	if len(trs) == 0 {
		return nil
	}

	var out []Row
	start := 0
	for i, tr := range trs {
		ths := rowCells(tr, atom.Th)
		if len(ths) == 0 {
			continue
		}
		cells := make([]string, len(ths))
		empty := true
		for j, th := range ths {
			cells[j] = cellText(th)
			if cells[j] != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, Row{Header: true, Cells: cells})
		}
		start = i + 1
		break
	}

	for _, tr := range trs[start:] {
		tds := rowCells(tr, atom.Td)
		if len(tds) == 0 {
			continue
		}

		cells := make([]string, len(tds))
		empty := true
		for i, td := range tds {
			cells[i] = cellText(td)
			if cells[i] != "" {
				empty = false
			}
		}
		if empty || isBannerRow(cells) {
			continue
		}
		out = append(out, Row{Cells: cells})
	}
	return out
}

// tableRows collects the tr nodes belonging directly to this table, walking
// through tbody/thead but not into nested tables.
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				rows = append(rows, c)
			case atom.Table:
				// Nested table: its rows belong to it.
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

// rowCells collects the th or td nodes belonging directly to this row,
// skipping cells of nested tables.
func rowCells(tr *html.Node, cell atom.Atom) []*html.Node {
	var cells []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case cell:
				cells = append(cells, c)
			case atom.Table:
			default:
				walk(c)
			}
		}
	}
	walk(tr)
	return cells
}

// cellText extracts the plain text of one cell: <br> becomes a newline,
// entities are already unescaped by the parser, surrounding tags are
// stripped, and blank lines are squeezed so a multi-line cell stays one
// value with clean line breaks.
func cellText(cell *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Br:
				sb.WriteByte('\n')
				return
			case atom.Script, atom.Style:
				return
			case atom.Table:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(cell)

	lines := strings.Split(sb.String(), "\n")
	kept := lines[:0]
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			kept = append(kept, ln)
		}
	}
	return strings.Join(kept, "\n")
}

// isBannerRow reports whether the normalized row text matches a known
// non-data banner marker.
func isBannerRow(cells []string) bool {
	joined := strings.ToLower(strings.Join(cells, " "))
	for _, marker := range bannerMarkers {
		if strings.Contains(joined, marker) {
			return true
		}
	}
	return false
}
