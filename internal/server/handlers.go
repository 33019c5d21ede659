// Package server exposes the reconciliation operations over HTTP. It is
// presentation glue only: every decision lives in the usecase layer.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/gityap/gityap/internal/usecase"
)

const defaultOperationTimeout = 60 * time.Second

type Handler struct {
	recon   *usecase.Reconciler
	logger  zerolog.Logger
	timeout time.Duration
}

func NewHandler(recon *usecase.Reconciler, logger zerolog.Logger, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}
	return &Handler{recon: recon, logger: logger, timeout: timeout}
}

func (h *Handler) opContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status, code, msg := mapDomainError(err)
	writeError(w, status, code, msg)
}

func (h *Handler) getCodeProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	profile, err := h.recon.ResolveCodeProfile(ctx, chi.URLParam(r, "handle"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) getChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	profile, err := h.recon.ResolveChannelProfile(ctx, chi.URLParam(r, "handle"), sessionFrom(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) compare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	q := r.URL.Query()
	result, err := h.recon.CompareEntities(ctx, q.Get("github"), q.Get("telegram"), sessionFrom(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) compareChannels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	q := r.URL.Query()
	result, err := h.recon.CompareChannels(ctx,
		q.Get("left"), q.Get("right"),
		q.Get("leftGithub"), q.Get("rightGithub"),
		sessionFrom(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// matchResponse uses pointers so an empty pool serializes as explicit
// nulls, never as zero values that could be misread as a match.
type matchResponse struct {
	Handle          *string `json:"handle"`
	Reason          *string `json:"reason"`
	CodeHandleGuess *string `json:"githubUsername,omitempty"`
}

func (h *Handler) findMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	q := r.URL.Query()
	result, found, err := h.recon.FindCofounderMatch(ctx, q.Get("telegram"), q.Get("github"), q.Get("exclude"))
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := matchResponse{}
	if found {
		resp.Handle = &result.Handle
		resp.Reason = &result.Reason
		if result.CodeHandleGuess != "" {
			resp.CodeHandleGuess = &result.CodeHandleGuess
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	profiles, err := h.recon.SearchCodeUsers(ctx, r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.recon.Leaderboard(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) recentComparisons(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	outcomes, err := h.recon.RecentComparisons(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomes)
}

// sessionFrom accepts the channel session either as a bearer header or a
// query parameter; the header wins.
func sessionFrom(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return r.URL.Query().Get("session")
}
