package moodle

import (
	"context"
	"fmt"
	"math"
	"moodlefetch/internal/components/assert"
	"moodlefetch/internal/components/restyutil"
	"moodlefetch/internal/components/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("moodlefetch/pkg/moodle")

const report_execute = "execute"

const DEFAULT_USER_AGENT = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type ClientOptions struct {
	// BaseUrl is optional, Login and SetSessionData can bind it later.
	BaseUrl   string
	Telemetry telemetry.API

	// defaults to 30 seconds
	Timeout time.Duration
	// 0 means no limit
	RequestsPerSecond float64
	CloudflareBypass  bool
	// defaults to DEFAULT_USER_AGENT
	UserAgent string
	// HttpDump receives every request/response pair, it can be nil.
	HttpDump restyutil.InstrumentOutput
}

// Client is the entry point for talking to a portal. Like Session, a Client
// must only run one operation at a time.
type Client struct {
	http           *resty.Client
	redirectPolicy resty.RedirectPolicy
	session        *Session
	tel            telemetry.API
}

func NewClient(opts ClientOptions) (*Client, error) {
	assert.NotNil(opts.Telemetry)

	tel := telemetry.NewScopedAPI("moodle", opts.Telemetry)

	httpClient := resty.New()
	// session state lives in Session, a jar would resend cookies after a reset
	httpClient.SetCookieJar(nil)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DEFAULT_USER_AGENT
	}
	httpClient.SetHeader("user-agent", userAgent)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	httpClient.SetTimeout(timeout)

	redirectPolicy := resty.FlexibleRedirectPolicy(10)
	httpClient.SetRedirectPolicy(redirectPolicy)

	if opts.RequestsPerSecond > 0 {
		// max burst >= rps just means that no requests will be dropped
		burst := int(math.Ceil(opts.RequestsPerSecond))
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, tracer, opts.HttpDump)

	c := &Client{
		http:           httpClient,
		redirectPolicy: redirectPolicy,
		tel:            tel,
	}
	if opts.BaseUrl != "" {
		err := c.bind(opts.BaseUrl)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// bind points the client at a portal, a different portal gets a fresh Session.
func (c *Client) bind(baseUrl string) error {
	if baseUrl == "" {
		if c.session == nil {
			return fmt.Errorf("no base url bound")
		}
		return nil
	}
	session, err := NewSession(baseUrl, c.tel)
	if err != nil {
		return err
	}
	if c.session != nil && c.session.BaseUrl() == session.BaseUrl() {
		return nil
	}
	c.session = session
	return nil
}

// Session is nil until a base url is bound.
func (c *Client) Session() *Session {
	return c.session
}

// SetSessionData restores a session obtained out of band.
func (c *Client) SetSessionData(baseUrl, sesskey, moodleSession string) error {
	err := c.bind(baseUrl)
	if err != nil {
		return err
	}
	c.session.set(moodleSession, sesskey)
	return nil
}

func (c *Client) ClearSessionData() {
	if c.session == nil {
		return
	}
	c.session.Reset()
}

func (c *Client) env() Env {
	return Env{
		Http:           c.http,
		Session:        c.session,
		Tel:            c.tel,
		RedirectPolicy: c.redirectPolicy,
	}
}

// Execute runs any operation against the client's session. Whatever the
// operation does, including panicking, the outcome is a Result.
func Execute[T any](ctx context.Context, c *Client, op Operation[T]) (result Result[T]) {
	name := fmt.Sprintf("%T", op)
	ctx, span := tracer.Start(ctx, "execute")
	defer span.End()
	span.SetAttributes(attribute.String("moodle.operation", name))

	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			c.tel.ReportBroken(report_execute, fmt.Errorf("panic: %w", cause), name)
			result = Failure[T](newError(KIND_INTERNAL, fmt.Sprintf("operation %s panicked", name), cause))
		}
		if err := result.Failure(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Kind.String())
		}
	}()

	if op == nil {
		return Failure[T](newError(KIND_INVALID_ARGUMENT, "nil operation", nil))
	}
	if c.session == nil {
		return Failure[T](newError(KIND_INVALID_ARGUMENT, "no base url bound", nil))
	}

	return op.Execute(ctx, c.env())
}

// Login authenticates against `baseUrl`, an empty baseUrl reuses the bound one.
func (c *Client) Login(ctx context.Context, baseUrl, username, password string) Result[Unit] {
	err := c.bind(baseUrl)
	if err != nil {
		return Failure[Unit](newError(KIND_INVALID_ARGUMENT, "bind base url", err))
	}
	return Execute[Unit](ctx, c, NewLoginOperation(username, password))
}

func (c *Client) Grades(ctx context.Context) Result[Grades] {
	return Execute[Grades](ctx, c, NewQuery[Grades](GradesQuery{}))
}

func (c *Client) Courses(ctx context.Context) Result[[]Course] {
	return Execute[[]Course](ctx, c, NewQuery[[]Course](CoursesQuery{}))
}

func (c *Client) Logout(ctx context.Context) Result[Unit] {
	return Execute[Unit](ctx, c, LogoutOperation{})
}
