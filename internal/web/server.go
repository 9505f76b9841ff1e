// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

// Package web is the HTTP surface of the gateway: the public pages, the
// credential forms, and the session-gated protected area.
package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/alcove-web/alcove/internal/auth"
	"github.com/alcove-web/alcove/internal/observability"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Session cookie parameters.
const (
	SessionCookieName  = "alcove_session"
	sessionKeyIdentity = "auth_identity"

	sessionMaxAge = 12 * time.Hour
)

// contextKeyUser carries the authenticated user between middleware and
// handlers within one request.
const contextKeyUser = "web.user"

// Options configures a Server. Service and Codec are required; Throttle,
// Metrics, and Logger are optional.
type Options struct {
	SessionSecret string
	Debug         bool

	Service  *auth.Service
	Codec    *auth.IdentityCodec
	Throttle *auth.Throttle
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Server wires the gin engine for the site.
type Server struct {
	engine   *gin.Engine
	service  *auth.Service
	codec    *auth.IdentityCodec
	throttle *auth.Throttle
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates a Server with all routes registered.
func New(opts Options) (*Server, error) {
	if opts.SessionSecret == "" {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("session secret is required")
	}
	if opts.Service == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("auth service is required")
	}
	if opts.Codec == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("identity codec is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:   gin.New(),
		service:  opts.Service,
		codec:    opts.Codec,
		throttle: opts.Throttle,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.countRequests())

	tmpl := template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))
	s.engine.SetHTMLTemplate(tmpl)

	// The session store is server-side; the cookie carries only a signed
	// opaque reference, never the identity token itself.
	store := memstore.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   !opts.Debug,
		SameSite: http.SameSiteLaxMode,
	})
	s.engine.Use(sessions.Sessions(SessionCookieName, store))

	s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// routes registers every route exactly once. The protected area has a single
// handler behind RequireAuth.
func (s *Server) routes() {
	s.engine.GET("/", s.getHome)
	s.engine.GET("/login", s.getLogin)
	s.engine.GET("/register", s.getRegister)
	s.engine.POST("/login", s.postLogin)
	s.engine.POST("/register", s.postRegister)
	s.engine.GET("/logout", s.getLogout)

	protected := s.engine.Group("")
	protected.Use(s.RequireAuth())
	protected.GET("/secrets", s.getSecrets)

	// Static content pages of the site; no logic behind them.
	s.engine.GET("/music", s.renderPage("music.tmpl"))
	s.engine.GET("/arts", s.renderPage("arts.tmpl"))
	s.engine.GET("/drumkit", s.renderPage("drumkit.tmpl"))
	s.engine.GET("/paint", s.renderPage("paint.tmpl"))
	s.engine.GET("/science", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "https://fold.it/play")
	})
}

// countRequests records per-route request counts when metrics are wired.
func (s *Server) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if s.metrics == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
