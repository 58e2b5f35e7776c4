package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coffee-export/export-manager/internal/platform/httpx"
	"github.com/coffee-export/export-manager/internal/shared"
)

const sessionEmailKey = "email"

// Authenticator verifies sign-in credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, req SignInRequest) (*User, error)
}

// EventPublisher broadcasts session changes.
type EventPublisher interface {
	Publish(ctx context.Context, event SessionEvent) error
}

// Handler exposes the session endpoints.
type Handler struct {
	logger   *slog.Logger
	service  Authenticator
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
	events   EventPublisher
	clock    shared.Clock
}

// NewHandler builds a Handler. A nil events publisher disables notification.
func NewHandler(logger *slog.Logger, service Authenticator, sessions *shared.SessionManager, csrf *shared.CSRFManager, events EventPublisher, clock shared.Clock) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		csrf:     csrf,
		events:   events,
		clock:    clock,
	}
}

// MountRoutes registers auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/session", h.currentSession)
	r.Post("/sign-in", h.signIn)
	r.Post("/sign-out", h.signOut)
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "session unavailable")
		return
	}
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(sess, token))
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "session unavailable")
		return
	}
	var req SignInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Authenticate(r.Context(), req)
	if err != nil {
		h.logger.Warn("sign-in failed", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.sessions.Renew(sess)
	sess.SetUser(user.ID.String())
	sess.Set(sessionEmailKey, user.Email)
	sess.Delete(shared.CSRFSessionKey)
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.logger.Info("user signed in", slog.String("user_id", user.ID.String()))
	h.publish(r.Context(), SessionEvent{
		Type:      EventSignedIn,
		UserID:    user.ID.String(),
		Email:     user.Email,
		SessionID: sess.ID,
		At:        h.clock.Now(),
	})
	httpx.JSON(w, http.StatusOK, h.view(sess, token))
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if !sess.Authenticated() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	event := SessionEvent{
		Type:      EventSignedOut,
		UserID:    sess.User(),
		Email:     sess.Get(sessionEmailKey),
		SessionID: sess.ID,
		At:        h.clock.Now(),
	}
	h.sessions.Destroy(sess)
	h.logger.Info("user signed out", slog.String("user_id", event.UserID))
	h.publish(r.Context(), event)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publish(ctx context.Context, event SessionEvent) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(ctx, event); err != nil {
		h.logger.Warn("publish session event", slog.String("type", string(event.Type)), slog.Any("error", err))
	}
}

func (h *Handler) view(sess *shared.Session, token string) SessionView {
	v := SessionView{Authenticated: sess.Authenticated(), CSRFToken: token}
	if v.Authenticated {
		v.UserID = sess.User()
		v.Email = sess.Get(sessionEmailKey)
	}
	return v
}

// RequireSession rejects requests whose session has no signed-in user.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !shared.SessionFromContext(r.Context()).Authenticated() {
			httpx.RespondError(w, ErrNotSignedIn)
			return
		}
		next.ServeHTTP(w, r)
	})
}
