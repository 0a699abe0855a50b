package portal

import (
	"strconv"
	"strings"
)

// blockedIPs are well-known resolver and special-purpose addresses that must
// never be submitted to the portal.
var blockedIPs = map[string]struct{}{
	"0.0.0.0":         {},
	"8.8.8.8":         {},
	"8.8.4.4":         {},
	"1.1.1.1":         {},
	"1.0.0.1":         {},
	"9.9.9.9":         {},
	"9.9.9.10":        {},
	"4.2.2.1":         {},
	"4.2.2.2":         {},
	"208.67.222.222":  {},
	"208.67.220.220":  {},
	"127.0.0.1":       {},
	"127.0.0.2":       {},
	"255.255.255.255": {},
}

// ValidateIPv4 reports whether ip is a bare dotted-quad IPv4 address that is
// safe to route to the portal. Blocked special addresses and the loopback
// range are rejected.
func ValidateIPv4(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}
	if _, blocked := blockedIPs[ip]; blocked {
		return false
	}
	if parts[0] == "127" {
		return false
	}
	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

// IsCIDR reports whether value carries a prefix length, e.g. "10.1.2.0/24".
func IsCIDR(value string) bool {
	return strings.Contains(value, "/")
}

// SanitizeIPForSearch strips a CIDR suffix so the value matches the portal's
// single-IP search field, which expects a bare address.
func SanitizeIPForSearch(ip string) string {
	if ip == "" {
		return ""
	}
	bare, _, _ := strings.Cut(ip, "/")
	return strings.TrimSpace(bare)
}

// ParseIPList splits free-form text (newlines, commas, whitespace) into a
// de-duplicated list of IP/CIDR tokens. Tokens whose bare address fails
// ValidateIPv4 are returned in invalid instead. When autoCIDR is true a /32
// suffix is appended to bare addresses.
func ParseIPList(text string, autoCIDR bool) (ips, invalid []string) {
	if text == "" {
		return nil, nil
	}

	var tokens []string
	for _, line := range strings.Split(text, "\n") {
		for _, part := range strings.Split(line, ",") {
			tokens = append(tokens, strings.Fields(part)...)
		}
	}

	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		bare := token
		if idx := strings.Index(token, "/"); idx >= 0 {
			bare = strings.TrimSpace(token[:idx])
		}
		if !ValidateIPv4(bare) {
			invalid = append(invalid, token)
			continue
		}
		if autoCIDR && !IsCIDR(token) {
			token += "/32"
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		ips = append(ips, token)
	}
	return ips, invalid
}
