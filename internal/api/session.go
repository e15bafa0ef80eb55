package api

import (
	"net/http"
	"strings"
	"time"
)

type sessionView struct {
	LoggedIn  bool       `json:"loggedIn"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (h *Handler) sessionView() sessionView {
	v := sessionView{LoggedIn: h.Session.LoggedIn()}
	if exp := h.Session.ExpiresAt(); !exp.IsZero() {
		v.ExpiresAt = &exp
	}
	return v
}

func (h *Handler) getSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionView())
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tok := strings.TrimSpace(body.Token)
	if tok == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	h.Session.Login(tok)
	v := h.sessionView()
	if !v.LoggedIn {
		writeJSON(w, http.StatusUnauthorized, v)
		return
	}
	h.Logger.InfoContext(r.Context(), "session started")
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.Session.Logout()
	h.Logger.InfoContext(r.Context(), "session ended")
	w.WriteHeader(http.StatusNoContent)
}
