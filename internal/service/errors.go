package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mlmcommerce/supplychain/internal/obs"
	"github.com/mlmcommerce/supplychain/internal/reqctx"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// SystemError is an infrastructure failure (database, cache) surfaced to the
// caller as a generic failure. Retrying may help; the correlation id ties the
// response to the logged details.
type SystemError struct {
	CorrelationID string
	Op            string
	Err           error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s: internal error (correlation id %s)", e.Op, e.CorrelationID)
}

func (e *SystemError) Unwrap() error { return e.Err }

// RejectionError carries the business reasons a purchase was refused.
type RejectionError struct {
	Reasons []string
	Err     error
}

func (e *RejectionError) Error() string {
	return "purchase rejected: " + strings.Join(e.Reasons, "; ")
}

func (e *RejectionError) Unwrap() error { return e.Err }

// systemError wraps err as a SystemError and logs it with fields. An error that
// already is a SystemError is returned unchanged so it is logged only once.
func systemError(ctx context.Context, op string, err error, fields map[string]any) error {
	var se *SystemError
	if errors.As(err, &se) {
		return se
	}
	cid := reqctx.CorrelationID(ctx)
	if cid == "" {
		cid = uuid.NewString()
	}
	logged := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		logged[k] = v
	}
	logged["op"] = op
	logged["err"] = err
	obs.LogEvent(reqctx.WithCorrelationID(ctx, cid), "error", "engine.system_error", logged)
	return &SystemError{CorrelationID: cid, Op: op, Err: err}
}

// passthrough reports whether err is already classified for the caller.
func passthrough(err error) bool {
	var se *SystemError
	var re *RejectionError
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.As(err, &se) ||
		errors.As(err, &re)
}
