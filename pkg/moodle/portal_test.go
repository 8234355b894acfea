package moodle

import (
	"fmt"
	"moodlefetch/internal/components/telemetry"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const loginPageWithToken = `<html><body>
<form class="login-form" action="/login/index.php" method="post" id="login">
	<input type="hidden" name="anchor" value="">
	<input type="hidden" name="logintoken" value="abc123">
	<input type="text" name="username" id="username">
	<input type="password" name="password" id="password">
</form>
</body></html>`

const loginPageWithoutToken = `<html><body>
<form class="login-form" action="/login/index.php" method="post" id="login">
	<input type="text" name="username" id="username">
	<input type="password" name="password" id="password">
</form>
</body></html>`

const landingPage = `<html><head>
<script>
//<![CDATA[
M.cfg = {"wwwroot":"https:\/\/moodle.example.edu","sesskey":"XYZ","themerev":"1712345678"};
//]]>
</script>
</head><body><div class="usermenu"><span class="avatar current"></span></div></body></html>`

const rejectedPage = `<html><body>
<div class="loginform"><div class="loginerrors"><a id="loginerrormessage" class="accesshide" href="#">Invalid login, please try again</a></div></div>
<script>M.cfg = {"sesskey":"ANONYMOUS"};</script>
</body></html>`

const gradesPage = `<html><body>
<table id="overview-grade" class="generaltable boxaligncenter">
<thead><tr><th class="header c0">Course name</th><th class="header c1">Grade</th></tr></thead>
<tbody>
<tr class=""><td class="cell c0"><a href="/course/user.php?id=2">Biology  101</a></td><td class="cell c1">87.50</td></tr>
<tr class=""><td class="cell c0"><a href="/course/user.php?id=3">Chemistry</a></td><td class="cell c1"> - </td></tr>
<tr class=""><td class="cell c0"></td><td class="cell c1">99.00</td></tr>
<tr class="emptyrow"><td class="cell c0">Hidden course</td><td class="cell c1">12.00</td></tr>
<tr class=""><td class="cell c0">Physics</td><td class="cell c1"></td></tr>
<tr class=""><td class="cell c0">History</td></tr>
<tr class=""><td class="cell c0">Biology 101</td><td class="cell c1">91.00</td></tr>
</tbody>
</table>
</body></html>`

const emptyGradesPage = `<html><body>
<table id="overview-grade"><tbody><tr class="emptyrow"><td class="c0"></td><td class="c1"></td></tr></tbody></table>
</body></html>`

const frontPage = `<html><body>
<ul class="unlist">
<li><div class="coursebox"><h3 class="coursename"><a href="/course/view.php?id=12">Algebra I</a></h3></div></li>
<li><div class="coursebox"><h3 class="coursename"><a href="/course/view.php?id=15">World  History</a></h3></div></li>
<li><a href="/course/index.php">All courses</a></li>
</ul>
</body></html>`

type recordedRequest struct {
	Method string
	Path   string
	Cookie string
	Form   map[string]string
	Query  map[string]string
}

// fakePortal mimics the parts of a moodle site the client talks to.
type fakePortal struct {
	t *testing.T

	LoginPage     string
	FirstCookie   string
	RotatedCookie string
	LandingPage   string
	GradesPage    string
	GradesStatus  int
	GradesCookie  string
	FrontPage     string
	BlockPost     chan struct{}

	// written as is, ex. a Set-Cookie deleting the session
	GradesSetCookie string

	mutex    sync.Mutex
	requests []recordedRequest
	server   *httptest.Server
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{
		t:             t,
		LoginPage:     loginPageWithToken,
		FirstCookie:   "sess1",
		RotatedCookie: "sess2",
		LandingPage:   landingPage,
		GradesPage:    gradesPage,
		GradesStatus:  http.StatusOK,
		FrontPage:     frontPage,
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) URL() string {
	return p.server.URL
}

func (p *fakePortal) Requests() []recordedRequest {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	out := make([]recordedRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *fakePortal) record(r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Form:   map[string]string{},
		Query:  map[string]string{},
	}
	if cookie, err := r.Cookie(SESSION_COOKIE); err == nil {
		rec.Cookie = cookie.Value
	}
	if r.Method == http.MethodPost {
		err := r.ParseForm()
		require.NoError(p.t, err)
		for k := range r.PostForm {
			rec.Form[k] = r.PostForm.Get(k)
		}
	}
	for k := range r.URL.Query() {
		rec.Query[k] = r.URL.Query().Get(k)
	}

	p.mutex.Lock()
	p.requests = append(p.requests, rec)
	p.mutex.Unlock()
}

func (p *fakePortal) handle(w http.ResponseWriter, r *http.Request) {
	p.record(r)

	setCookie := func(value string) {
		if value == "" {
			return
		}
		http.SetCookie(w, &http.Cookie{Name: SESSION_COOKIE, Value: value, Path: "/", HttpOnly: true})
	}

	switch {
	case r.URL.Path == "/login/index.php" && r.Method == http.MethodGet:
		setCookie(p.FirstCookie)
		fmt.Fprint(w, p.LoginPage)
	case r.URL.Path == "/login/index.php" && r.Method == http.MethodPost:
		if p.BlockPost != nil {
			select {
			case <-p.BlockPost:
			case <-r.Context().Done():
				return
			}
		}
		setCookie(p.RotatedCookie)
		w.Header().Set("Location", "/login/index.php?testsession=2")
		w.WriteHeader(http.StatusSeeOther)
	case r.URL.Path == "/my/":
		fmt.Fprint(w, p.LandingPage)
	case r.URL.Path == "/grade/report/overview/index.php":
		setCookie(p.GradesCookie)
		if p.GradesSetCookie != "" {
			w.Header().Add("Set-Cookie", p.GradesSetCookie)
		}
		w.WriteHeader(p.GradesStatus)
		fmt.Fprint(w, p.GradesPage)
	case r.URL.Path == "/index.php":
		fmt.Fprint(w, p.FrontPage)
	case r.URL.Path == "/login/logout.php":
		http.SetCookie(w, &http.Cookie{Name: SESSION_COOKIE, Value: "deleted", MaxAge: -1})
		w.Header().Set("Location", "/")
		w.WriteHeader(http.StatusSeeOther)
	case r.URL.Path == "/":
		fmt.Fprint(w, "<html><body>home</body></html>")
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, baseUrl string) (*Client, *telemetry.Recorder) {
	rec := telemetry.NewRecorder()
	client, err := NewClient(ClientOptions{
		BaseUrl:   baseUrl,
		Telemetry: rec,
	})
	require.NoError(t, err)
	return client, rec
}

func countPaths(requests []recordedRequest, path string) int {
	n := 0
	for _, r := range requests {
		if strings.HasPrefix(r.Path, path) {
			n++
		}
	}
	return n
}
