// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/alcove-web/alcove/internal/auth"
	"github.com/alcove-web/alcove/internal/observability"
	"github.com/alcove-web/alcove/pkg/errutil"
)

// credentialForm is the login and registration submission. The pair is
// transient; it exists only for the duration of the request.
type credentialForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func (s *Server) getHome(c *gin.Context) {
	c.HTML(http.StatusOK, "home.tmpl", nil)
}

func (s *Server) getLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.tmpl", nil)
}

func (s *Server) getRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register.tmpl", nil)
}

// getSecrets renders the protected area. RequireAuth has already resolved
// the user.
func (s *Server) getSecrets(c *gin.Context) {
	user := CurrentUser(c)
	c.HTML(http.StatusOK, "secrets.tmpl", gin.H{"Email": user.Email})
}

// renderPage returns a handler that renders a static page of the site.
func (s *Server) renderPage(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, name, nil)
	}
}

// postLogin handles a login submission. Unknown email and wrong password are
// indistinguishable to the client: both bounce back to the login page.
func (s *Server) postLogin(c *gin.Context) {
	var form credentialForm
	if err := c.ShouldBind(&form); err != nil {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	if s.throttled(c) {
		return
	}

	user, err := s.service.Authenticate(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.recordLogin(observability.OutcomeRejected)
			s.recordFailure(c)
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}
		s.recordLogin(observability.OutcomeError)
		errutil.LogError(s.logger, "login failed", err)
		s.renderError(c)
		return
	}

	if s.throttle != nil {
		s.throttle.Reset(c.ClientIP())
	}

	if err := s.establishSession(c, user); err != nil {
		s.recordLogin(observability.OutcomeError)
		errutil.LogError(s.logger, "session save failed after login", err)
		s.renderError(c)
		return
	}

	s.recordLogin(observability.OutcomeSuccess)
	c.Redirect(http.StatusSeeOther, "/secrets")
}

// postRegister handles a registration submission. A duplicate email bounces
// to the login page; this implicitly reveals the address is taken, an
// accepted tradeoff of the flow.
func (s *Server) postRegister(c *gin.Context) {
	var form credentialForm
	if err := c.ShouldBind(&form); err != nil {
		c.Redirect(http.StatusSeeOther, "/register")
		return
	}

	if s.throttled(c) {
		return
	}

	user, err := s.service.Register(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateEmail):
			s.recordRegistration(observability.OutcomeRejected)
			c.Redirect(http.StatusSeeOther, "/login")
		case errors.Is(err, auth.ErrEmptyPassword) || errors.Is(err, auth.ErrInvalidEmail):
			s.recordRegistration(observability.OutcomeRejected)
			c.Redirect(http.StatusSeeOther, "/register")
		default:
			s.recordRegistration(observability.OutcomeError)
			errutil.LogError(s.logger, "registration failed", err)
			s.renderError(c)
		}
		return
	}

	// The user record is durable from here on. If the session cannot be
	// saved the registration still stands; the client just logs in again.
	if err := s.establishSession(c, user); err != nil {
		s.recordRegistration(observability.OutcomeError)
		errutil.LogError(s.logger, "session save failed after registration", err)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	s.recordRegistration(observability.OutcomeSuccess)
	c.Redirect(http.StatusSeeOther, "/secrets")
}

// getLogout clears the session identity and returns to the landing page.
// It succeeds whether or not the session was authenticated, and twice in a
// row gives the same outcome as once.
func (s *Server) getLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		errutil.LogError(s.logger, "session clear failed", err)
		s.renderError(c)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// establishSession stores the user's identity token in the session. This is
// the only write to the session's authenticated field.
func (s *Server) establishSession(c *gin.Context, user *auth.User) error {
	session := sessions.Default(c)
	session.Set(sessionKeyIdentity, s.codec.Serialize(user))
	return session.Save() //nolint:wrapcheck // callers add context
}

// throttled answers the request with 429 when the client IP is locked out.
func (s *Server) throttled(c *gin.Context) bool {
	if s.throttle == nil {
		return false
	}
	retryAfter := s.throttle.RetryAfter(c.ClientIP())
	if retryAfter <= 0 {
		return false
	}
	c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds())+1, 10))
	c.String(http.StatusTooManyRequests, "too many attempts, try again later\n")
	return true
}

func (s *Server) recordFailure(c *gin.Context) {
	if s.throttle != nil {
		s.throttle.RecordFailure(c.ClientIP())
	}
}

// renderError sends the generic failure page. Internal detail stays in the
// logs; nothing of the cause reaches the client.
func (s *Server) renderError(c *gin.Context) {
	c.HTML(http.StatusInternalServerError, "error.tmpl", nil)
}

func (s *Server) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) recordRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}
