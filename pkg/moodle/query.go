package moodle

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	report_query_fetch = "query.fetch"
	report_query_parse = "query.parse"
)

// Query is a read of a single authenticated page.
type Query[T any] interface {
	// Path is relative to the base url, ex. "grade/report/overview/index.php".
	Path() string
	Parse(doc *goquery.Document) (T, error)
}

// RequestConfigurer can be implemented by a Query that needs more than the
// session cookie on its request, it replaces the default decoration.
type RequestConfigurer interface {
	ConfigureRequest(session *Session, req *resty.Request)
}

// QueryOperation runs a Query: it fetches the page with the session cookie,
// parses it and hands the document to the Query.
type QueryOperation[T any] struct {
	query Query[T]
}

func NewQuery[T any](query Query[T]) QueryOperation[T] {
	return QueryOperation[T]{query: query}
}

func (o QueryOperation[T]) parse(doc *goquery.Document) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panicked: %v", r)
		}
	}()
	return o.query.Parse(doc)
}

func (o QueryOperation[T]) Execute(ctx context.Context, env Env) Result[T] {
	session := env.Session
	path := o.query.Path()

	if !session.IsAuthenticated() {
		return Failure[T](newError(KIND_NOT_AUTHENTICATED, fmt.Sprintf("query %s: not logged in", path), nil))
	}

	endpoint := session.Endpoint(path)
	req := env.Http.R().SetContext(ctx)
	if configurer, ok := o.query.(RequestConfigurer); ok {
		configurer.ConfigureRequest(session, req)
	} else {
		session.DecorateRequest(req)
	}

	res, err := req.Get(endpoint)
	if err != nil {
		env.Tel.ReportBroken(report_query_fetch, fmt.Errorf("fetch: %w", err), endpoint)
		return Failure[T](newError(KIND_TRANSPORT, fmt.Sprintf("query %s", path), err))
	}
	if !res.IsSuccess() {
		env.Tel.ReportWarning(report_query_fetch, "status", res.StatusCode(), endpoint)
		return Failure[T](requestFailed(fmt.Sprintf("query %s", path), res.StatusCode()))
	}
	session.captureSessionCookie(res)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		env.Tel.ReportBroken(report_query_parse, fmt.Errorf("parse html: %w", err), endpoint)
		return Failure[T](newError(KIND_PARSE, "request execution failed", err))
	}
	doc.Url, _ = url.Parse(endpoint)

	value, err := o.parse(doc)
	if err != nil {
		env.Tel.ReportWarning(report_query_parse, err, endpoint)
		return Failure[T](newError(KIND_PARSE, "request execution failed", err))
	}

	return Success(value)
}
