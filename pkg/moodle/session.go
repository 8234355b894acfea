package moodle

import (
	"fmt"
	"moodlefetch/internal/components/assert"
	"moodlefetch/internal/components/telemetry"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// SESSION_COOKIE is the name of the cookie moodle keeps its session id in.
const SESSION_COOKIE = "MoodleSession"

// Session holds the authentication state for exactly one portal.
//
// A Session is not safe for concurrent use, operations that share a Session
// must be run one at a time.
type Session struct {
	baseUrl       string
	sessionCookie string
	sesskey       string

	tel telemetry.API
}

// NewSession binds a new, unauthenticated session to `baseUrl`.
func NewSession(baseUrl string, tel telemetry.API) (*Session, error) {
	assert.NotNil(tel)

	parsed, err := url.Parse(strings.TrimSpace(baseUrl))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base url '%s' must be http or https", baseUrl)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url '%s' has no host", baseUrl)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""

	return &Session{
		baseUrl: strings.TrimRight(parsed.String(), "/"),
		tel:     tel,
	}, nil
}

func (s *Session) BaseUrl() string {
	return s.baseUrl
}

// Endpoint resolves a portal path (with or without a leading slash) against the base url.
func (s *Session) Endpoint(path string) string {
	return s.baseUrl + "/" + strings.TrimLeft(path, "/")
}

func (s *Session) SessionCookie() (string, bool) {
	return s.sessionCookie, s.sessionCookie != ""
}

func (s *Session) Sesskey() (string, bool) {
	return s.sesskey, s.sesskey != ""
}

// IsAuthenticated requires both the session cookie and the sesskey, a cookie
// alone is not a usable session.
func (s *Session) IsAuthenticated() bool {
	return s.sessionCookie != "" && s.sesskey != ""
}

// DecorateRequest attaches the session cookie to `req`, it does nothing when
// there is no cookie yet.
func (s *Session) DecorateRequest(req *resty.Request) {
	if s.sessionCookie == "" {
		return
	}
	req.SetCookie(&http.Cookie{
		Name:  SESSION_COOKIE,
		Value: s.sessionCookie,
	})
	s.tel.ReportDebug("injected session cookie")
}

// Reset forgets the cookie and the sesskey, the base url is kept.
func (s *Session) Reset() {
	s.sessionCookie = ""
	s.sesskey = ""
}

func (s *Session) set(sessionCookie, sesskey string) {
	s.sessionCookie = sessionCookie
	s.sesskey = sesskey
}

func (s *Session) setSessionCookie(value string) {
	s.sessionCookie = value
}

func (s *Session) setSesskey(value string) {
	s.sesskey = value
}

// expired is true for a Set-Cookie that deletes the cookie instead of setting it.
func expired(cookie *http.Cookie, now time.Time) bool {
	if cookie.MaxAge < 0 {
		return true
	}
	return !cookie.Expires.IsZero() && !cookie.Expires.After(now)
}

func sessionCookieFrom(res *resty.Response) (string, bool) {
	now := time.Now()
	for _, cookie := range res.Cookies() {
		if cookie.Name != SESSION_COOKIE || cookie.Value == "" || expired(cookie, now) {
			continue
		}
		return cookie.Value, true
	}
	return "", false
}

// captureSessionCookie overwrites the stored cookie when the server rotated it.
func (s *Session) captureSessionCookie(res *resty.Response) bool {
	value, ok := sessionCookieFrom(res)
	if !ok || value == s.sessionCookie {
		return false
	}
	s.sessionCookie = value
	s.tel.ReportDebug("captured renewed session cookie", res.Request.URL)
	return true
}
