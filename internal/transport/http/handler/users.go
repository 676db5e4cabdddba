package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-api-users/internal/application/user"
	"github.com/go-api-users/internal/domain"
	"github.com/go-api-users/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// UserHandler handles the admin user CRUD endpoints.
type UserHandler struct {
	svc    user.Service
	photos photoURLs
}

func NewUserHandler(svc user.Service, photos photoURLs) *UserHandler {
	return &UserHandler{svc: svc, photos: photos}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := decode(r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	u, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(r.Context(), h.photos, u))
}

// List returns one page of users, never including the caller.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := user.Paginate(domain.UserFilter{
		ExcludeUserID: claims.UserID,
		Query:         q.Get("query"),
		Page:          page,
		Limit:         limit,
	})
	users, total, err := h.svc.List(r.Context(), f)
	if err != nil {
		httpError(w, r, err)
		return
	}
	views := make([]*UserView, len(users))
	for i := range users {
		views[i] = toUserView(r.Context(), h.photos, &users[i])
	}
	writeJSON(w, http.StatusOK, UsersPage{
		Data:        views,
		Total:       total,
		Page:        f.Page,
		Limit:       f.Limit,
		HasNextPage: f.Offset()+len(users) < total,
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(r.Context(), h.photos, u))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateUserRequest
	if err := decode(r, &req); err != nil {
		httpError(w, r, err)
		return
	}
	u, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(r.Context(), h.photos, u))
}

// Delete soft-deletes a user. Admins cannot delete their own account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	if id == claims.UserID {
		httpError(w, r, fmt.Errorf("cannot delete own account: %w", domain.ErrForbidden))
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
