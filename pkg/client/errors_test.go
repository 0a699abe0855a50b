package client

import (
	"errors"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{401, ErrorClassClient},
		{404, ErrorClassClient},
		{422, ErrorClassClient},
		{500, ErrorClassServer},
		{502, ErrorClassServer},
		{599, ErrorClassServer},
		{200, ""},
		{302, ""},
	}

	for _, tt := range tests {
		if got := ClassifyStatus(tt.status); got != tt.want {
			t.Errorf("ClassifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ErrorClassServer, true},
		{ErrorClassNetwork, true},
		{ErrorClassClient, false},
		{ErrorClassAborted, false},
		{"", false},
	}

	for _, tt := range tests {
		if got := shouldRetry(tt.class); got != tt.want {
			t.Errorf("shouldRetry(%q) = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestPortalError_Error(t *testing.T) {
	err := &PortalError{StatusCode: 500, Class: ErrorClassServer, Message: "request failed"}
	msg := err.Error()
	if !strings.Contains(msg, "server") || !strings.Contains(msg, "500") {
		t.Errorf("Error() = %q, missing class or status", msg)
	}
}

func TestPortalError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &PortalError{Class: ErrorClassNetwork, Message: "transport failure", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("Error() = %q, missing wrapped message", err.Error())
	}
}
