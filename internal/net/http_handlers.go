package net

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/observability"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/session"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/telemetry"
)

// TokenExchanger turns login tokens into sessions.
type TokenExchanger interface {
	ExchangeLoginToken(ctx context.Context, token string) (session.Record, error)
	IssueLoginToken(playerID string) (string, error)
}

// HTTPHandlerConfig wires the HTTP surface.
type HTTPHandlerConfig struct {
	// Socket serves /ws.
	Socket nethttp.HandlerFunc
	// Sessions backs /session/exchange.
	Sessions TokenExchanger
	// Diagnostics returns the body of /diagnostics.
	Diagnostics func() any
	// DevLogin enables /session/dev-token, which signs a login token for any
	// player id. Never enable it outside local development.
	DevLogin      bool
	Observability observability.Config
	Logger        telemetry.Logger
}

type exchangeRequest struct {
	Token string `json:"token"`
}

type exchangeResponse struct {
	SessionID string    `json:"sessionId"`
	PlayerID  string    `json:"playerId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewHTTPHandler builds the server mux.
func NewHTTPHandler(cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string `json:"status"`
			ServerTime int64  `json:"serverTime"`
			Details    any    `json:"details,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
		}
		if cfg.Diagnostics != nil {
			payload.Details = cfg.Diagnostics()
		}
		writeJSON(w, logger, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/session/exchange", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		if cfg.Sessions == nil {
			httpError(w, "sessions unavailable", nethttp.StatusServiceUnavailable)
			return
		}
		var req exchangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		record, err := cfg.Sessions.ExchangeLoginToken(r.Context(), req.Token)
		switch {
		case errors.Is(err, session.ErrTokenInvalid), errors.Is(err, session.ErrTokenUsed):
			httpError(w, "invalid token", nethttp.StatusUnauthorized)
			return
		case err != nil:
			logger.Printf("[http] token exchange failed: %v", err)
			httpError(w, "exchange failed", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, nethttp.StatusOK, exchangeResponse{
			SessionID: record.SessionID,
			PlayerID:  record.PlayerID,
			ExpiresAt: record.ExpiresAt,
		})
	})

	if cfg.DevLogin && cfg.Sessions != nil {
		mux.HandleFunc("/session/dev-token", func(w nethttp.ResponseWriter, r *nethttp.Request) {
			playerID := r.URL.Query().Get("playerId")
			if playerID == "" {
				httpError(w, "missing playerId", nethttp.StatusBadRequest)
				return
			}
			token, err := cfg.Sessions.IssueLoginToken(playerID)
			if err != nil {
				httpError(w, "issue failed", nethttp.StatusInternalServerError)
				return
			}
			writeJSON(w, logger, nethttp.StatusOK, exchangeRequest{Token: token})
		})
	}

	if cfg.Socket != nil {
		mux.HandleFunc("/ws", cfg.Socket)
	}
	cfg.Observability.Mount(mux)

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("[http] encode response failed: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	nethttp.Error(w, message, status)
}
