package moodle

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	report_login_fetch_login_page   = "login.fetch-login-page"
	report_login_submit_credentials = "login.submit-credentials"
	report_login_verify             = "login.verify"
)

// LOGIN_FAILURE_MARKER is present on the landing page when the portal rejected the credentials.
const LOGIN_FAILURE_MARKER = "loginerrormessage"

const (
	LOGIN_PATH   = "login/index.php"
	LANDING_PATH = "my/"
)

// LoginOperation replays the browser login handshake:
//
//  1. GET the login page, keep its logintoken and first session cookie
//  2. POST the credentials with that cookie, keep the (rotated) session cookie
//  3. GET the landing page, check for the failure marker
//  4. pull the sesskey out of the landing page
//
// A failing step leaves the session as far as it got, callers can tell with IsAuthenticated.
type LoginOperation struct {
	Username string
	Password string
}

func NewLoginOperation(username, password string) LoginOperation {
	return LoginOperation{Username: username, Password: password}
}

func extractLoginToken(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse login page: %w", err)
	}
	logintoken := doc.Find("input[name=logintoken]").AttrOr("value", "")
	if logintoken == "" {
		return "", fmt.Errorf("could not find login token")
	}
	return logintoken, nil
}

var sesskeyRegex = regexp.MustCompile(`"sesskey":"([^"]+)"`)

func extractSesskey(body string) (string, bool) {
	groups := sesskeyRegex.FindStringSubmatch(body)
	if len(groups) < 2 {
		return "", false
	}
	return groups[1], true
}

// useLastResponse stops the client at the credential POST's redirect, the rotated
// session cookie is only on that response.
var useLastResponse = resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
})

func (o LoginOperation) submitCredentials(ctx context.Context, env Env, loginToken string) (*resty.Response, error) {
	env.Http.SetRedirectPolicy(useLastResponse)
	defer func() {
		if env.RedirectPolicy != nil {
			env.Http.SetRedirectPolicy(env.RedirectPolicy)
			return
		}
		env.Http.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	}()

	req := env.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"anchor":     "",
			"logintoken": loginToken,
			"username":   o.Username,
			"password":   o.Password,
		})
	env.Session.DecorateRequest(req)
	return req.Post(env.Session.Endpoint(LOGIN_PATH))
}

func (o LoginOperation) Execute(ctx context.Context, env Env) Result[Unit] {
	session := env.Session
	tel := env.Tel

	res, err := env.Http.R().
		SetContext(ctx).
		Get(session.Endpoint(LOGIN_PATH))
	if err != nil {
		tel.ReportBroken(report_login_fetch_login_page, fmt.Errorf("fetch: %w", err))
		return Failure[Unit](newError(KIND_TRANSPORT, "fetch login page", err))
	}
	// the portal answered, from here a previous sesskey must not survive next
	// to a fresh anonymous cookie
	session.Reset()
	if !res.IsSuccess() {
		tel.ReportBroken(report_login_fetch_login_page, "status", res.StatusCode())
		return Failure[Unit](requestFailed("fetch login page", res.StatusCode()))
	}

	loginToken, err := extractLoginToken(res.Body())
	if err != nil {
		tel.ReportBroken(report_login_fetch_login_page, err)
		return Failure[Unit](newError(KIND_TOKEN_EXTRACTION, "login token not found", err))
	}
	firstCookie, ok := sessionCookieFrom(res)
	if !ok {
		tel.ReportBroken(report_login_fetch_login_page, "no session cookie")
		return Failure[Unit](newError(KIND_TOKEN_EXTRACTION, "session cookie not found on login page", nil))
	}
	session.setSessionCookie(firstCookie)
	tel.ReportDebug("got login token and first stage session", loginToken, firstCookie)

	res, err = o.submitCredentials(ctx, env, loginToken)
	if err != nil {
		tel.ReportBroken(report_login_submit_credentials, fmt.Errorf("post: %w", err))
		return Failure[Unit](newError(KIND_TRANSPORT, "submit credentials", err))
	}
	if res.IsError() {
		tel.ReportBroken(report_login_submit_credentials, "status", res.StatusCode())
		return Failure[Unit](requestFailed("submit credentials", res.StatusCode()))
	}
	if renewed, ok := sessionCookieFrom(res); ok {
		session.setSessionCookie(renewed)
		tel.ReportDebug("got final session", renewed)
	} else {
		tel.ReportWarning(report_login_submit_credentials, "session cookie was not rotated")
	}

	req := env.Http.R().SetContext(ctx)
	session.DecorateRequest(req)
	res, err = req.Get(session.Endpoint(LANDING_PATH))
	if err != nil {
		tel.ReportBroken(report_login_verify, fmt.Errorf("fetch landing page: %w", err))
		return Failure[Unit](newError(KIND_TRANSPORT, "fetch landing page", err))
	}
	body := res.String()
	if strings.Contains(body, LOGIN_FAILURE_MARKER) {
		return Failure[Unit](newError(KIND_AUTHENTICATION_REJECTED, "incorrect username or password", nil))
	}
	if !res.IsSuccess() {
		tel.ReportBroken(report_login_verify, "status", res.StatusCode())
		return Failure[Unit](requestFailed("fetch landing page", res.StatusCode()))
	}

	sesskey, ok := extractSesskey(body)
	if !ok {
		tel.ReportBroken(report_login_verify, "could not find sesskey")
		return Failure[Unit](newError(KIND_TOKEN_EXTRACTION, "sesskey not found", nil))
	}
	session.setSesskey(sesskey)
	tel.ReportDebug("got sesskey", sesskey)

	return Success(Unit{})
}
