package cerr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sedeops/autoassign/pkg/storage"
)

func TestCode_Mapping(t *testing.T) {
	assert.Equal(t, "InvalidArgument", InvalidArgument.String())
	assert.Equal(t, "Unknown", Code(99).String())
	assert.Equal(t, connect.CodeNotFound, NotFound.ConnectCode())
	assert.Equal(t, http.StatusBadRequest, InvalidArgument.HTTPCode())
	assert.Equal(t, http.StatusConflict, AlreadyExists.HTTPCode())
	assert.Equal(t, FailedPrecondition, NewCodeFromConnectError(connect.NewError(connect.CodeFailedPrecondition, errors.New("x"))))
}

func TestWrapStorageReadError(t *testing.T) {
	err := WrapStorageReadError("task", fmt.Errorf("tasks/a.yaml: %w", storage.ErrNotFound))
	assert.True(t, IsCode(err, NotFound))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = WrapStorageReadError("task", errors.New("disk on fire"))
	assert.True(t, IsCode(err, Internal))
}

func TestChiMiddleware_WritesErrorWithViolations(t *testing.T) {
	h := NewConvertConnectErrorChiMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetJSONError(r.Context(), NewError(InvalidArgument, "taskIds must be an array", nil).
			AddFieldViolation("taskIds", "required", "taskIds is required"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body httpError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "InvalidArgument", body.Code)
	require.Len(t, body.Violations, 1)
	assert.Equal(t, "taskIds", body.Violations[0].Field)
}

func TestChiMiddleware_WritesResponseWithStatus(t *testing.T) {
	h := NewConvertConnectErrorChiMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetJSONResponseWithStatus(r.Context(), http.StatusCreated, map[string]string{"id": "x"})
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"x"}`, rec.Body.String())
}

func TestConvertConnectErrorInterceptor(t *testing.T) {
	ctx := context.Background()
	wrap := NewConvertConnectErrorInterceptor().WrapUnary

	_, err := wrap(func(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, NewError(NotFound, "task not found", nil)
	})(ctx, connect.NewRequest(&struct{}{}))
	var connectErr *connect.Error
	require.ErrorAs(t, err, &connectErr)
	assert.Equal(t, connect.CodeNotFound, connectErr.Code())
	assert.Equal(t, "task not found", connectErr.Message())

	_, err = wrap(func(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, errors.New("pool exhausted")
	})(ctx, connect.NewRequest(&struct{}{}))
	assert.Equal(t, connect.CodeUnknown, connect.CodeOf(err))
	assert.NotContains(t, err.Error(), "pool exhausted")

	want := connect.NewResponse(&struct{}{})
	resp, err := wrap(func(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
		return want, nil
	})(ctx, connect.NewRequest(&struct{}{}))
	require.NoError(t, err)
	assert.Same(t, want, resp)
}
