package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/go-worldstate/internal/engine"
	"github.com/npezzotti/go-worldstate/internal/server"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func NewBadRequestError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    lower(http.StatusText(http.StatusBadRequest)),
	}
}

func NewNotFoundError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusNotFound,
		Message:    lower(http.StatusText(http.StatusNotFound)),
	}
}

func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusInternalServerError,
		Message:    lower(http.StatusText(http.StatusInternalServerError)),
		Err:        err,
	}
}

func NewUnauthorizedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusUnauthorized,
		Message:    lower(http.StatusText(http.StatusUnauthorized)),
	}
}

func NewServiceUnavailableError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    lower(http.StatusText(http.StatusServiceUnavailable)),
		Err:        err,
	}
}

// NewEngineError translates an engine failure. Rejections keep the engine's
// message; internal failures are reported generically.
func NewEngineError(err error) *ApiError {
	code := server.StatusCode(err)
	if code == http.StatusInternalServerError {
		return NewInternalServerError(err)
	}

	msg := lower(http.StatusText(code))
	var ee *engine.Error
	if errors.As(err, &ee) && ee.Message != "" {
		msg = ee.Message
	}

	return &ApiError{
		StatusCode: code,
		Message:    msg,
		Err:        err,
	}
}
