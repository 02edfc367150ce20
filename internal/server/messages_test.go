package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/npezzotti/go-worldstate/internal/engine"
	"github.com/stretchr/testify/assert"
)

func TestNoErrOk(t *testing.T) {
	result := NoErrOK(1, map[string]any{
		"testkey": "testvalue",
	})

	assert.Equal(t, 1, result.Id, "expected id to match")
	assert.Equal(t, http.StatusOK, result.Response.ResponseCode, "expected status OK")
	assert.Equal(t, map[string]any{"testkey": "testvalue"}, result.Response.Data, "expected data to match")
	assert.Nil(t, result.Event, "expected no event")
}

func TestErrInvalidMessage(t *testing.T) {
	t.Run("with id", func(t *testing.T) {
		msg := ErrInvalidMessage(3)
		assert.Equal(t, 3, msg.Id)
		assert.Equal(t, http.StatusBadRequest, msg.Response.ResponseCode)
	})

	t.Run("without id", func(t *testing.T) {
		msg := ErrInvalidMessage(-1)
		assert.Zero(t, msg.Id)
		assert.Equal(t, "invalid message format", msg.Response.Error)
	})
}

func TestStatusCode(t *testing.T) {
	tcases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", engine.ValidationError("bad"), http.StatusBadRequest},
		{"auth", engine.AuthError("who"), http.StatusUnauthorized},
		{"not found", engine.NotFoundError("gone"), http.StatusNotFound},
		{"conflict", engine.ConflictError("taken"), http.StatusConflict},
		{"state", engine.StateError("not now"), http.StatusUnprocessableEntity},
		{"internal", engine.InternalError(errors.New("boom")), http.StatusInternalServerError},
		{"foreign", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, StatusCode(tc.err))
		})
	}
}

func TestErrEngine(t *testing.T) {
	t.Run("surfaces the message", func(t *testing.T) {
		msg := ErrEngine(5, engine.ConflictError("room name already exists"))
		assert.Equal(t, 5, msg.Id)
		assert.Equal(t, http.StatusConflict, msg.Response.ResponseCode)
		assert.Equal(t, "room name already exists", msg.Response.Error)
	})

	t.Run("hides internal details", func(t *testing.T) {
		msg := ErrEngine(5, engine.InternalError(errors.New("connection refused")))
		assert.Equal(t, http.StatusInternalServerError, msg.Response.ResponseCode)
		assert.Equal(t, "internal server error", msg.Response.Error)
	})
}

func TestEventMessage(t *testing.T) {
	ev := engine.Event{Kind: engine.EventPlayerCount, Audience: 3}
	msg := EventMessage(ev)
	assert.Nil(t, msg.Response)
	assert.Equal(t, &ev, msg.Event)

	bytes, err := serializeMessage(msg)
	assert.NoError(t, err)
	assert.NotContains(t, string(bytes), "audience", "audience is never sent to clients")
}
