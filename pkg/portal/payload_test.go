package portal

import (
	"net/http"
	"net/url"
	"reflect"
	"testing"
)

func TestNormalizeTicketSystem(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ntm-remedy", "NTM-Remedy"},
		{"NTM/Remedy", "NTM-Remedy"},
		{" ntm-remedy ", "NTM-Remedy"},
		{"NTM-Remedy", "NTM-Remedy"},
		{"ServiceNow", "ServiceNow"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTicketSystem(tt.in); got != tt.want {
			t.Errorf("NormalizeTicketSystem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMonthNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"January", "01"},
		{"march", "03"},
		{"SEP", "09"},
		{"dec", "12"},
		{"7", "07"},
		{"12", "12"},
		{"0", "01"},
		{"13", "01"},
		{"garbage", "01"},
	}
	for _, tt := range tests {
		if got := MonthNumber(tt.in); got != tt.want {
			t.Errorf("MonthNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		filters  SearchFilters
		endpoint string
		method   string
		payload  url.Values
	}{
		{
			name:     "by blackhole id uses GET view.cgi",
			filters:  SearchFilters{BlackholeID: "12345"},
			endpoint: endpointView,
			method:   http.MethodGet,
			payload:  url.Values{"searchby": {"blackhole_id"}, "id": {"12345"}},
		},
		{
			name:     "by ticket normalizes the system",
			filters:  SearchFilters{TicketSystem: "ntm-remedy", TicketNumber: "INC0042"},
			endpoint: endpointSearch,
			method:   http.MethodPost,
			payload:  url.Values{"searchby": {"ticket"}, "ticket_system": {"NTM-Remedy"}, "ticket_number": {"INC0042"}},
		},
		{
			name:     "by ticket defaults the system",
			filters:  SearchFilters{TicketNumber: "INC0042"},
			endpoint: endpointSearch,
			method:   http.MethodPost,
			payload:  url.Values{"searchby": {"ticket"}, "ticket_system": {"NTM-Remedy"}, "ticket_number": {"INC0042"}},
		},
		{
			name:     "by opening user",
			filters:  SearchFilters{OpenedBy: "jdoe"},
			endpoint: endpointSearch,
			method:   http.MethodPost,
			payload:  url.Values{"searchby": {"open_user"}, "user": {"jdoe"}},
		},
		{
			name:     "by ip defaults view Both",
			filters:  SearchFilters{IPAddress: "10.0.0.1"},
			endpoint: endpointSearch,
			method:   http.MethodPost,
			payload:  url.Values{"searchby": {"ipaddress"}, "ipaddress": {"10.0.0.1"}, "view": {"Both"}},
		},
		{
			name:     "by open date maps month names",
			filters:  SearchFilters{Month: "March", Year: "2025", Description: "case"},
			endpoint: endpointSearch,
			method:   http.MethodPost,
			payload:  url.Values{"searchby": {"open_date"}, "month": {"03"}, "year": {"2025"}, "description": {"case"}},
		},
		{
			name:     "year without month defaults month 01",
			filters:  SearchFilters{Year: "2024"},
			endpoint: endpointSearch,
			method:   http.MethodPost,
			payload:  url.Values{"searchby": {"open_date"}, "month": {"01"}, "year": {"2024"}, "description": {""}},
		},
		{
			name:     "empty filters fall back to active holes",
			filters:  SearchFilters{},
			endpoint: endpointSearch,
			method:   http.MethodPost,
			payload:  url.Values{"searchby": {"active_holes"}},
		},
		{
			name:     "id wins over everything else",
			filters:  SearchFilters{BlackholeID: "9", TicketNumber: "INC1", IPAddress: "10.0.0.1"},
			endpoint: endpointView,
			method:   http.MethodGet,
			payload:  url.Values{"searchby": {"blackhole_id"}, "id": {"9"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, method, payload := buildSearchQuery(tt.filters)
			if endpoint != tt.endpoint {
				t.Errorf("endpoint = %q, want %q", endpoint, tt.endpoint)
			}
			if method != tt.method {
				t.Errorf("method = %q, want %q", method, tt.method)
			}
			if !reflect.DeepEqual(payload, tt.payload) {
				t.Errorf("payload = %v, want %v", payload, tt.payload)
			}
		})
	}
}
