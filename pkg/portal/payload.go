package portal

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/prajeetp/bhbatch/pkg/batch"
)

// Portal endpoints.
const (
	endpointView   = "view.cgi"
	endpointSearch = "search.cgi"
	endpointNew    = "new.cgi"
)

// SearchFilters selects one search mode. The first populated field wins, in
// this order: BlackholeID, TicketNumber, OpenedBy, IPAddress, Month/Year.
// When none are set the search falls back to all active holes.
type SearchFilters struct {
	BlackholeID  string
	TicketSystem string
	TicketNumber string
	OpenedBy     string
	IPAddress    string
	View         string // "Both", "Active" or "Closed"; defaults to "Both"
	Month        string // name ("March"), abbreviation ("mar") or number
	Year         string
	Description  string
}

// NormalizeTicketSystem maps the common lowercase/slash spellings of the
// NTM Remedy system to the exact value the portal form expects. Other values
// pass through trimmed.
func NormalizeTicketSystem(raw string) string {
	val := strings.TrimSpace(raw)
	if strings.ReplaceAll(strings.ToLower(val), "/", "-") == "ntm-remedy" {
		return "NTM-Remedy"
	}
	return val
}

// MonthNumber converts a month name, abbreviation or number to the two-digit
// form the portal's open-date search expects. Unrecognized input falls back
// to "01".
func MonthNumber(input string) string {
	months := map[string]string{
		"january": "01", "february": "02", "march": "03", "april": "04",
		"may": "05", "june": "06", "july": "07", "august": "08",
		"september": "09", "october": "10", "november": "11", "december": "12",
		"jan": "01", "feb": "02", "mar": "03", "apr": "04", "jun": "06",
		"jul": "07", "aug": "08", "sep": "09", "oct": "10", "nov": "11", "dec": "12",
	}
	normalized := strings.ToLower(strings.TrimSpace(input))
	if m, ok := months[normalized]; ok {
		return m
	}
	if n, err := strconv.Atoi(normalized); err == nil && n >= 1 && n <= 12 {
		return fmt.Sprintf("%02d", n)
	}
	log.Warn().Str("month", input).Msg("Invalid month input, defaulting to 01")
	return "01"
}

// buildSearchQuery maps filters to the portal's search protocol: ID lookups
// are a GET against view.cgi, everything else a form POST to search.cgi.
func buildSearchQuery(f SearchFilters) (endpoint, method string, payload url.Values) {
	if f.BlackholeID != "" {
		return endpointView, http.MethodGet, url.Values{
			"searchby": {"blackhole_id"},
			"id":       {f.BlackholeID},
		}
	}

	if f.TicketNumber != "" {
		system := f.TicketSystem
		if system == "" {
			system = "NTM-Remedy"
		}
		return endpointSearch, http.MethodPost, url.Values{
			"searchby":      {"ticket"},
			"ticket_system": {NormalizeTicketSystem(system)},
			"ticket_number": {f.TicketNumber},
		}
	}

	if f.OpenedBy != "" {
		return endpointSearch, http.MethodPost, url.Values{
			"searchby": {"open_user"},
			"user":     {f.OpenedBy},
		}
	}

	if f.IPAddress != "" {
		view := f.View
		if view == "" {
			view = "Both"
		}
		return endpointSearch, http.MethodPost, url.Values{
			"searchby":  {"ipaddress"},
			"ipaddress": {f.IPAddress},
			"view":      {view},
		}
	}

	if f.Month != "" || f.Year != "" {
		month := "01"
		if f.Month != "" {
			month = MonthNumber(f.Month)
		}
		year := f.Year
		if year == "" {
			year = "2020"
		}
		return endpointSearch, http.MethodPost, url.Values{
			"searchby":    {"open_date"},
			"month":       {month},
			"year":        {year},
			"description": {f.Description},
		}
	}

	return endpointSearch, http.MethodPost, url.Values{"searchby": {"active_holes"}}
}

// searchOperation wraps a filter set as a batch operation keyed by targetID.
func searchOperation(targetID string, f SearchFilters) batch.Operation {
	endpoint, method, payload := buildSearchQuery(f)
	op := batch.Operation{
		TargetID: targetID,
		Kind:     batch.KindSearch,
		Method:   method,
		Endpoint: endpoint,
	}
	if method == http.MethodGet {
		op.Kind = batch.KindViewByID
		op.Params = payload
	} else {
		op.Form = payload
	}
	return op
}
