package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/hearth/internal/ledger"
)

// codeOf maps the ledger error taxonomy onto Connect codes.
func codeOf(err error) connect.Code {
	var (
		ve *ledger.ValidationError
		pe *ledger.PermissionError
		ne *ledger.NotFoundError
		te *ledger.TransientStoreError
	)
	switch {
	case errors.As(err, &ve):
		return connect.CodeInvalidArgument
	case errors.As(err, &pe):
		return connect.CodePermissionDenied
	case errors.As(err, &ne):
		return connect.CodeNotFound
	case errors.As(err, &te):
		return connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	default:
		return connect.CodeInternal
	}
}

// fail logs err and converts it to a Connect error carrying the message a
// person should see. Connect errors pass through unchanged.
func fail(ctx context.Context, op string, err error, attrs ...any) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		slog.WarnContext(ctx, op+" rejected", append(attrs, "code", connectErr.Code().String(), "error", connectErr.Message())...)
		return connectErr
	}

	code := codeOf(err)
	attrs = append(attrs, "code", code.String(), "error", err)
	switch code {
	case connect.CodeInvalidArgument, connect.CodeNotFound, connect.CodePermissionDenied, connect.CodeCanceled:
		slog.WarnContext(ctx, op+" rejected", attrs...)
	default:
		slog.ErrorContext(ctx, op+" failed", attrs...)
	}
	return connect.NewError(code, errors.New(ledger.UserMessage(err)))
}

// badInput rejects a request field that could not be parsed.
func badInput(field string, err error) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s: %w", field, err))
}

// partial reports whether err only says some items of a bulk operation
// failed. Those are returned to the caller as a successful response.
func partial(err error) bool {
	var be *ledger.BulkError
	return errors.As(err, &be)
}
