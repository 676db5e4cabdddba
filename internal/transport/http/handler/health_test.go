package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func healthReq(action string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/v1/health-check/"+action, nil)
	return withChiParam(r, "action", action)
}

func TestHealth_Ping(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(nil).Ping(rr, healthReq("ping"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pong")
}

func TestHealth_UnknownAction(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(nil).Ping(rr, healthReq("status"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealth_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	tests := []struct {
		name   string
		checks map[string]Check
		status int
		body   string
	}{
		{"no checks", nil, http.StatusOK, "ready"},
		{"all healthy", map[string]Check{"postgres": ok, "redis": ok}, http.StatusOK, "ready"},
		{"one down", map[string]Check{"postgres": ok, "redis": down}, http.StatusServiceUnavailable, `"redis":"unavailable"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			NewHealthHandler(tt.checks).Ping(rr, healthReq("ready"))
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.body)
			assert.NotContains(t, rr.Body.String(), "connection refused")
		})
	}
}
