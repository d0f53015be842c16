// Package httpapi exposes the application services over a JSON REST API.
//
// Handlers that touch the ledger may block behind an in-flight
// reconciliation pass; that is the documented cost of the coarse ledger lock.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	app "github.com/memetip/tipboard/internal/app"
	"github.com/memetip/tipboard/internal/app/domain/meme"
	"github.com/memetip/tipboard/internal/app/domain/user"
	"github.com/memetip/tipboard/internal/app/metrics"
	"github.com/memetip/tipboard/internal/app/services/accounts"
	"github.com/memetip/tipboard/internal/app/services/memes"
	"github.com/memetip/tipboard/internal/app/services/withdrawals"
	"github.com/memetip/tipboard/internal/wallet"
	"github.com/memetip/tipboard/pkg/logger"
)

// Options configures the HTTP layer.
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type handler struct {
	app  *app.Application
	auth *authenticator
	log  *logger.Logger
}

// NewHandler returns the router exposing the REST API.
func NewHandler(application *app.Application, opts Options, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	h := &handler{
		app:  application,
		auth: newAuthenticator(opts.JWTSecret, ttl),
		log:  log,
	}

	r := chi.NewRouter()
	r.Use(metrics.InstrumentHandler)

	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.With(loginRateLimit()).Post("/register", h.register)
	r.With(loginRateLimit()).Post("/login", h.login)

	r.Get("/memes", h.listMemes)
	r.Get("/memes/most-tipped", h.mostTipped)
	r.Get("/memes/{id}", h.getMeme)
	r.Get("/leaderboard", h.leaderboard)
	r.Get("/accounts/{name}", h.profile)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.middleware)
		r.Post("/memes", h.submitMeme)
		r.Get("/account", h.account)
		r.Post("/withdraw", h.withdraw)
	})

	return r
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DisplayName   string `json:"display_name"`
		Email         string `json:"email"`
		PayoutAddress string `json:"payout_address"`
		Password      string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := h.app.Accounts.Register(r.Context(), payload.DisplayName, payload.Email, payload.PayoutAddress, payload.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.auth.issue(u.DisplayName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":  userPayload(u),
		"token": token,
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := h.app.Accounts.Authenticate(r.Context(), payload.DisplayName, payload.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.auth.issue(u.DisplayName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":  userPayload(u),
		"token": token,
	})
}

func (h *handler) listMemes(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Memes.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, memesPayload(list))
}

func (h *handler) mostTipped(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Memes.MostTipped(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, memesPayload(list))
}

func (h *handler) getMeme(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Memes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memePayload(m))
}

func (h *handler) submitMeme(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title    string `json:"title"`
		MediaRef string `json:"media_ref"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := h.app.Memes.Submit(r.Context(), identity(r), payload.Title, payload.MediaRef)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, memePayload(m))
}

func (h *handler) account(w http.ResponseWriter, r *http.Request) {
	view, err := h.app.Accounts.View(r.Context(), identity(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":                       userPayload(view.User),
		"unlocked_balance":           view.UnlockedBalance,
		"unlocked_balance_formatted": view.UnlockedBalanceFormatted,
		"memes":                      memesPayload(view.Memes),
	})
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	u, list, err := h.app.Accounts.Profile(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":  userPayload(u),
		"memes": memesPayload(list),
	})
}

func (h *handler) withdraw(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Withdrawals.Withdraw(r.Context(), identity(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := "ok"
	if result.NoFunds {
		status = "no_funds"
	} else if len(result.SweepErrors) > 0 {
		status = "partial"
	}
	sweepErrs := make([]map[string]interface{}, 0, len(result.SweepErrors))
	for _, se := range result.SweepErrors {
		sweepErrs = append(sweepErrs, map[string]interface{}{
			"subaccount_index": se.SubaccountIndex,
			"error":            se.Err.Error(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           status,
		"unlocked_balance": result.UnlockedBalance,
		"swept":            result.Swept,
		"sweep_errors":     sweepErrs,
	})
}

func (h *handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	order, view, err := h.app.Accounts.Leaderboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if order == nil {
		order = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order": order,
		"view":  view,
	})
}

// --- payload shaping --------------------------------------------------------

// userPayload strips authentication material from the persisted user record.
func userPayload(u user.User) map[string]interface{} {
	return map[string]interface{}{
		"display_name":         u.DisplayName,
		"payout_address":       u.PayoutAddress,
		"total_tips":           u.TotalTips,
		"total_tips_formatted": u.TotalTipsFormatted,
		"created_at":           u.CreatedAt,
	}
}

func memePayload(m meme.Meme) map[string]interface{} {
	return map[string]interface{}{
		"meme_id":           m.ID,
		"title":             m.Title,
		"author":            m.Author,
		"media_ref":         m.MediaRef,
		"receiving_address": m.ReceivingAddress,
		"tips":              m.Tips,
		"tips_formatted":    m.TipsFormatted,
		"created_at":        m.CreatedAt,
	}
}

func memesPayload(list []meme.Meme) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(list))
	for _, m := range list {
		out = append(out, memePayload(m))
	}
	return out
}

// --- helpers ----------------------------------------------------------------

func decodeJSON(r io.Reader, dest interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeServiceError maps domain errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accounts.ErrDuplicateName):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, accounts.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, accounts.ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, accounts.ErrUnknownUser),
		errors.Is(err, withdrawals.ErrUnknownUser),
		errors.Is(err, memes.ErrUnknownAuthor),
		errors.Is(err, memes.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, wallet.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}
