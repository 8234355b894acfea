package moodle

import (
	"context"
	"fmt"
)

const (
	report_logout = "logout"

	LOGOUT_PATH = "login/logout.php"
)

// LogoutOperation ends the session on the portal side. Once the portal has
// answered the local session is reset, whatever the status was.
type LogoutOperation struct{}

func (LogoutOperation) Execute(ctx context.Context, env Env) Result[Unit] {
	session := env.Session
	if !session.IsAuthenticated() {
		return Failure[Unit](newError(KIND_NOT_AUTHENTICATED, "logout: not logged in", nil))
	}
	sesskey, _ := session.Sesskey()

	req := env.Http.R().
		SetContext(ctx).
		SetQueryParam("sesskey", sesskey)
	session.DecorateRequest(req)

	res, err := req.Get(session.Endpoint(LOGOUT_PATH))
	if err != nil {
		env.Tel.ReportBroken(report_logout, fmt.Errorf("fetch: %w", err))
		return Failure[Unit](newError(KIND_TRANSPORT, "logout", err))
	}
	session.Reset()

	if res.IsError() {
		env.Tel.ReportWarning(report_logout, "status", res.StatusCode())
		return Failure[Unit](requestFailed("logout", res.StatusCode()))
	}
	return Success(Unit{})
}
