package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) requestUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.Uploads.RequestUpload(r.Context(), ViewerFrom(r.Context()), req.FileName, req.ContentType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUpload(c))
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	page, err := pageOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.svc.Posts.Feed(r.Context(), ViewerFrom(r.Context()), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostSummaries(list))
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Posts.Create(r.Context(), ViewerFrom(r.Context()), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPost(v))
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Posts.Get(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPost(v))
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Posts.Update(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "postID"), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPost(v))
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Posts.Delete(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "postID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) likePost(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Posts.Like(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "postID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unlikePost(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Posts.Unlike(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "postID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	page, err := pageOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.svc.Posts.ListComments(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "postID"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]commentResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toComment(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.Posts.AddComment(r.Context(), ViewerFrom(r.Context()), chi.URLParam(r, "postID"), req.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toComment(c))
}
