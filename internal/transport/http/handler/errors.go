package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/pkg/validate"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

var statusByErr = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidCredential, http.StatusUnprocessableEntity},
	{domain.ErrInvalidOrExpiredToken, http.StatusUnprocessableEntity},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrForbidden, http.StatusForbidden},
}

// httpError maps a service error to a response. Unknown errors are logged and
// answered with a generic 500.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validate.Error
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, MessageEnvelope{Error: "validation failed", Fields: ve.Fields})
		return
	}
	for _, m := range statusByErr {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.err.Error())
			return
		}
	}
	slog.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", chimiddleware.GetReqID(r.Context()),
		"err", err,
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
