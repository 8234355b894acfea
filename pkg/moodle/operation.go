package moodle

import (
	"context"
	"moodlefetch/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
)

// Env is everything an Operation is allowed to touch.
type Env struct {
	Http    *resty.Client
	Session *Session
	Tel     telemetry.API

	// RedirectPolicy is the policy Http is configured with, operations that
	// temporarily change it must restore this one.
	RedirectPolicy resty.RedirectPolicy
}

// Operation is a unit of work against a portal. Execute must never panic or
// return an error any other way than through the Result.
type Operation[T any] interface {
	Execute(ctx context.Context, env Env) Result[T]
}

// OperationFunc adapts a function into an Operation.
type OperationFunc[T any] func(ctx context.Context, env Env) Result[T]

func (f OperationFunc[T]) Execute(ctx context.Context, env Env) Result[T] {
	return f(ctx, env)
}
