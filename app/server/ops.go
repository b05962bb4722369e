// Package server exposes the operational endpoints: health, metrics and the
// websocket stream of settled transactions.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custody/app/models"
	"custody/app/notifier"
	"custody/pkg/crypto"
	"custody/pkg/log"
	"custody/pkg/response"
	"custody/pkg/web"
)

const (
	signatureParam = "signature"
	healthTimeout  = 3 * time.Second
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// WalletOwners resolves the user that owns a wallet.
type WalletOwners interface {
	WalletOwner(ctx context.Context, walletID string) (string, error)
}

type Ops struct {
	Router   chi.Router
	Notifier notifier.Service
	Wallets  WalletOwners
	Secret   string // signs websocket subscriptions
	Checks   map[string]Check
}

type health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Ops) Route() {
	s.Router.Get("/healthz", s.healthz)
	s.Router.Handle("/metrics", promhttp.Handler())
	s.Router.Get("/ws/wallets/{id}", s.subscribe)
}

func (s *Ops) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	out := &health{Status: "ok", Checks: make(map[string]string, len(s.Checks))}
	for name, check := range s.Checks {
		if err := check(ctx); err != nil {
			out.Status = "unavailable"
			out.Checks[name] = err.Error()
			log.AddFields(r.Context(), name, err.Error())
			continue
		}
		out.Checks[name] = "ok"
	}

	if out.Status != "ok" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	web.RenderResult(w, r, out)
}

// subscribe upgrades to a websocket that receives every settled transaction
// of the wallet. The signature is the HMAC of the wallet id.
func (s *Ops) subscribe(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "id")
	log.AddFields(r.Context(), "wallet", walletID)

	if !crypto.VerifySHA256(walletID, s.Secret, r.URL.Query().Get(signatureParam)) {
		web.RenderError(w, r, response.NewError(response.CodeUnauthorized, "invalid signature"))
		return
	}

	if _, err := s.Wallets.WalletOwner(r.Context(), walletID); err != nil {
		code := response.CodeInternal
		if errors.Is(err, models.ErrWalletNotFound) {
			code = response.CodeNotFound
		}
		web.RenderError(w, r, response.Wrap(code, err))
		return
	}

	if err := s.Notifier.Subscribe(r.Context(), &models.NewSubscription{
		ClientID:       walletID,
		ResponseWriter: w,
		Request:        r,
	}); err != nil {
		// the upgrader has already answered the client
		log.ExtractLogger(r.Context()).Warnw("subscription failed", "error", err)
	}
}
