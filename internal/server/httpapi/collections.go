package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) createCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Collections.Create(r.Context(), ViewerFrom(r.Context()), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCollection(v))
}

func (h *Handler) getCollection(w http.ResponseWriter, r *http.Request) {
	page, err := pageOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Collections.Get(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "collectionID"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollection(v))
}

func (h *Handler) updateCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Collections.Update(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "collectionID"), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollection(v))
}

func (h *Handler) deleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Collections.Delete(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "collectionID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addCollectionPost(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Collections.AddPost(r.Context(), ViewerFrom(r.Context()),
		chi.URLParam(r, "collectionID"), chi.URLParam(r, "postID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeCollectionPost(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Collections.RemovePost(r.Context(), ViewerFrom(r.Context()),
		chi.URLParam(r, "collectionID"), chi.URLParam(r, "postID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
