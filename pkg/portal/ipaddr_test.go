package portal

import (
	"reflect"
	"testing"
)

func TestValidateIPv4(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"10.0.0.1", true},
		{"192.168.255.254", true},
		{"203.0.113.7", true},
		{"0.0.0.0", false},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"208.67.222.222", false},
		{"255.255.255.255", false},
		{"127.0.0.1", false},
		{"127.99.1.2", false},
		{"256.1.1.1", false},
		{"10.0.0", false},
		{"10.0.0.0.1", false},
		{"10.0.0.x", false},
		{"10.0.0.-1", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateIPv4(tt.ip); got != tt.want {
			t.Errorf("ValidateIPv4(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestIsCIDR(t *testing.T) {
	if !IsCIDR("10.1.2.0/24") {
		t.Error("IsCIDR(10.1.2.0/24) = false")
	}
	if IsCIDR("10.1.2.3") {
		t.Error("IsCIDR(10.1.2.3) = true")
	}
}

func TestSanitizeIPForSearch(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10.1.2.3/32", "10.1.2.3"},
		{"10.1.2.3", "10.1.2.3"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeIPForSearch(tt.in); got != tt.want {
			t.Errorf("SanitizeIPForSearch(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseIPList_AutoCIDRAndDedupe(t *testing.T) {
	text := "10.0.0.1\n10.0.0.2/32, 10.0.0.3 10.0.0.1\n\n172.16.0.0/16"
	ips, invalid := ParseIPList(text, true)

	want := []string{"10.0.0.1/32", "10.0.0.2/32", "10.0.0.3/32", "172.16.0.0/16"}
	if !reflect.DeepEqual(ips, want) {
		t.Errorf("ParseIPList ips = %v, want %v", ips, want)
	}
	if len(invalid) != 0 {
		t.Errorf("ParseIPList invalid = %v, want none", invalid)
	}
}

func TestParseIPList_CollectsInvalid(t *testing.T) {
	ips, invalid := ParseIPList("10.0.0.1, 8.8.8.8, not-an-ip, 300.1.1.1/24", true)

	if want := []string{"10.0.0.1/32"}; !reflect.DeepEqual(ips, want) {
		t.Errorf("ParseIPList ips = %v, want %v", ips, want)
	}
	if want := []string{"8.8.8.8", "not-an-ip", "300.1.1.1/24"}; !reflect.DeepEqual(invalid, want) {
		t.Errorf("ParseIPList invalid = %v, want %v", invalid, want)
	}
}

func TestParseIPList_NoAutoCIDR(t *testing.T) {
	ips, _ := ParseIPList("10.0.0.1\n10.1.0.0/16", false)
	if want := []string{"10.0.0.1", "10.1.0.0/16"}; !reflect.DeepEqual(ips, want) {
		t.Errorf("ParseIPList ips = %v, want %v", ips, want)
	}
}

func TestParseIPList_Empty(t *testing.T) {
	if ips, invalid := ParseIPList("", true); ips != nil || invalid != nil {
		t.Errorf("ParseIPList(empty) = %v, %v, want nil, nil", ips, invalid)
	}
}
