package cerr

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/sedeops/autoassign/pkg/clog"
)

// NewConvertConnectErrorInterceptor converts handler errors into
// *connect.Error values carrying the cerr code, message and violations.
// Only unary procedures are served, so streams pass through untouched.
func NewConvertConnectErrorInterceptor() connect.Interceptor {
	return connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return nil, ExtractConnectError(ctx, err)
			}
			return resp, nil
		}
	})
}

// ExtractConnectError records err on the log context and returns its
// connect form. Errors that are neither *Error nor *connect.Error become
// Unknown so internals never reach the client.
func ExtractConnectError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if isCanceled(err) {
		return NewError(Canceled, "connection closed", err).ConnectError()
	}
	clog.AddError(ctx, err)

	var connectErr *connect.Error
	var cerr *Error
	switch {
	case errors.As(err, &connectErr):
		return connectErr
	case errors.As(err, &cerr):
		if cerr.Stack != "" {
			clog.AddStack(ctx, cerr.Stack)
		}
		return cerr.ConnectError()
	default:
		return NewError(Unknown, "unknown error", err).ConnectError()
	}
}
