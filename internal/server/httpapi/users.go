package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	page, err := pageOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Profiles.Get(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "userID"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(v))
}

func (h *Handler) listUserPosts(w http.ResponseWriter, r *http.Request) {
	page, err := pageOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.svc.Posts.ListByOwner(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "userID"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostSummaries(list))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Profiles.UpdateProfile(r.Context(), ViewerFrom(r.Context()), req.DisplayName, req.Bio)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(v))
}

func (h *Handler) updateAvatar(w http.ResponseWriter, r *http.Request) {
	var req avatarRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Profiles.UpdateAvatar(r.Context(), ViewerFrom(r.Context()), req.Reference)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(v))
}

func (h *Handler) follow(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Follows.Follow(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "userID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unfollow(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Follows.Unfollow(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "userID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
