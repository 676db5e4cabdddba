package handler

import (
	"fmt"
	"net/http"

	"github.com/go-api-users/internal/application/auth"
	"github.com/go-api-users/internal/application/photo"
	"github.com/go-api-users/internal/application/session"
	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/transport/http/middleware"
)

// AuthHandler serves the /auth endpoints: login, token refresh, email
// verification, password recovery and the caller's own profile.
type AuthHandler struct {
	sessions  session.Service
	auth      auth.Service
	photos    photo.Service
	maxUpload int64
}

func NewAuthHandler(sessions session.Service, authSvc auth.Service, photos photo.Service, maxUpload int64) *AuthHandler {
	return &AuthHandler{sessions: sessions, auth: authSvc, photos: photos, maxUpload: maxUpload}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req session.LoginRequest
	if err := decode(r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	res, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginEnvelope{Tokens: res.Tokens, User: toUserView(r.Context(), h.photos, res.User)})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decode(r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	if err := h.auth.Register(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	var req auth.HashRequest
	if err := decode(r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	if err := h.auth.ConfirmEmail(r.Context(), req.Hash); err != nil {
		httpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) ConfirmNewEmail(w http.ResponseWriter, r *http.Request) {
	var req auth.HashRequest
	if err := decode(r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	if err := h.auth.ConfirmNewEmail(r.Context(), req.Hash); err != nil {
		httpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ForgotPasswordRequest
	if err := decode(r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		httpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetPasswordRequest
	if err := decode(r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Hash, req.Password); err != nil {
		httpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh rotates the session hash. Must be mounted behind middleware.RefreshAuth.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.RefreshClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tokens, err := h.sessions.Refresh(r.Context(), claims.SessionID, claims.Hash)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.auth.Me(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(r.Context(), h.photos, u))
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req auth.UpdateMeRequest
	if err := decode(r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	u, err := h.auth.UpdateMe(r.Context(), claims.UserID, claims.SessionID, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(r.Context(), h.photos, u))
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess, err := h.sessions.GetCurrent(r.Context(), claims.SessionID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{
		ID:        sess.SessionID,
		ExpiresAt: sess.ExpiresAt.UnixMilli(),
		User:      toUserView(r.Context(), h.photos, sess.User),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.sessions.Logout(r.Context(), claims.SessionID); err != nil {
		httpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		httpError(w, r, fmt.Errorf("invalid multipart form: %w", domain.ErrBadRequest))
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		httpError(w, r, fmt.Errorf("missing file field: %w", domain.ErrBadRequest))
		return
	}
	defer f.Close()

	u, err := h.photos.Upload(r.Context(), claims.UserID, f)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(r.Context(), h.photos, u))
}

func (h *AuthHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.photos.Delete(r.Context(), claims.UserID); err != nil {
		httpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
