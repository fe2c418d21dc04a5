package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/playgate/gatekeeper"
	"github.com/playgate/gatekeeper/middleware"
)

// Authenticator is the engine surface the HTTP layer needs.
type Authenticator interface {
	Login(ctx context.Context, req gatekeeper.LoginRequest) (*gatekeeper.LoginResult, error)
	Ping(ctx context.Context) error
	ValidateSession(ctx context.Context, token string, mode gatekeeper.ValidationMode) (*gatekeeper.Session, error)
}

// Options configures the router.
type Options struct {
	Compat Compat
	Logger zerolog.Logger
	// Metrics serves GET /metrics when non-nil.
	Metrics http.Handler
	// TrustedProxies are consulted for the client IP. Nil trusts none.
	TrustedProxies []string
}

type handler struct {
	engine Authenticator
	compat Compat
	logger zerolog.Logger
}

// NewRouter builds the gin engine serving logins through engine.
func NewRouter(engine Authenticator, opts Options) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}

	h := &handler{
		engine: engine,
		compat: opts.Compat,
		logger: opts.Logger.With().Str("component", "httpapi").Logger(),
	}

	r.Use(h.recovery(), h.requestLogger())
	r.POST("/login", h.login)
	r.GET("/session", gin.WrapH(middleware.RequireStrict(engine)(http.HandlerFunc(h.session))))
	r.GET("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	return r, nil
}

func (h *handler) login(c *gin.Context) {
	var req gatekeeper.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Error:   CodeInvalidRequest,
			Message: "malformed request body",
		})
		return
	}

	ctx := gatekeeper.WithClientIP(c.Request.Context(), c.ClientIP())
	res, err := h.engine.Login(ctx, req)
	if err != nil {
		if status, _, _ := statusFor(err); status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("email", req.Email).Msg("login failed")
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.compat.response(
		res.Account.UserID,
		res.Account.Username,
		res.Account.Email,
		res.Token,
	))
}

func (h *handler) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.engine.Ping(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type sessionResponse struct {
	Email      string    `json:"email"`
	ExternalID string    `json:"externalId,omitempty"`
	AgeGate    bool      `json:"ageGate"`
	IssuedAt   time.Time `json:"issuedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// session reports the caller's current session. Game servers use it to
// check a client token.
func (h *handler) session(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(sessionResponse{
		Email:      s.Email,
		ExternalID: s.ExternalID,
		AgeGate:    s.AgeGate,
		IssuedAt:   s.IssuedAt.UTC(),
		ExpiresAt:  s.ExpiresAt.UTC(),
	})
}
