// Package session holds the immutable authenticated context shared by all
// portal components. A Context is produced once by the login layer and passed
// by reference to every constructor; it is never mutated, only replaced
// wholesale on re-login.
package session

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Config holds the material captured during a successful login.
type Config struct {
	// BaseURL is the portal root, e.g. "https://blackhole.example.net/".
	// A missing trailing slash is added during construction.
	BaseURL string

	// User is the authenticated username. It stamps the session log filename
	// and progress entries; it is not sent with requests.
	User string

	// Cookies is the stored auth state captured from the login browser
	// context. Treated as an opaque blob by every consumer.
	Cookies []*http.Cookie

	// VerifyTLS enforces certificate verification. The portal sits behind an
	// internal CA, so this defaults to false in practice.
	VerifyTLS bool

	// HTTPUser and HTTPPass are the optional HTTP Basic pair, supplied when
	// the portal front-end requires transport-level credentials in addition
	// to the session cookies.
	HTTPUser string
	HTTPPass string
}

// Context is the immutable session context. Accessors return copies of any
// mutable material so no caller can alter shared state.
type Context struct {
	baseURL   *url.URL
	user      string
	cookies   []*http.Cookie
	verifyTLS bool
	httpUser  string
	httpPass  string
}

// New validates the config and builds an immutable Context.
func New(cfg Config) (*Context, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	normalized := strings.TrimRight(cfg.BaseURL, "/") + "/"
	base, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", base.Scheme)
	}

	user := cfg.User
	if user == "" {
		user = "unknown"
	}

	cookies := make([]*http.Cookie, len(cfg.Cookies))
	for i, c := range cfg.Cookies {
		copied := *c
		cookies[i] = &copied
	}

	return &Context{
		baseURL:   base,
		user:      user,
		cookies:   cookies,
		verifyTLS: cfg.VerifyTLS,
		httpUser:  cfg.HTTPUser,
		httpPass:  cfg.HTTPPass,
	}, nil
}

// BaseURL returns the normalized portal root (always ends in "/").
func (s *Context) BaseURL() string {
	return s.baseURL.String()
}

// Resolve joins a relative endpoint path against the portal root.
func (s *Context) Resolve(path string) *url.URL {
	ref := &url.URL{Path: strings.TrimLeft(path, "/")}
	return s.baseURL.ResolveReference(ref)
}

// User returns the authenticated username.
func (s *Context) User() string {
	return s.user
}

// Cookies returns a copy of the stored auth state.
func (s *Context) Cookies() []*http.Cookie {
	out := make([]*http.Cookie, len(s.cookies))
	for i, c := range s.cookies {
		copied := *c
		out[i] = &copied
	}
	return out
}

// VerifyTLS reports whether certificate verification is enforced.
func (s *Context) VerifyTLS() bool {
	return s.verifyTLS
}

// BasicAuth returns the optional HTTP Basic pair. ok is false when no pair
// was supplied at login.
func (s *Context) BasicAuth() (user, pass string, ok bool) {
	if s.httpUser == "" || s.httpPass == "" {
		return "", "", false
	}
	return s.httpUser, s.httpPass, true
}
