// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

package web

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/alcove-web/alcove/internal/auth"
	"github.com/alcove-web/alcove/pkg/errutil"
)

// RequireAuth gates protected routes. It resolves the session's identity
// token through the codec on every request; the authentication decision is
// never cached across requests.
//
// An anonymous or undeserializable session redirects to the login page. Only
// a storage failure produces an error response.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(sessionKeyIdentity).(string)

		user, err := s.codec.Deserialize(c.Request.Context(), token)
		if err != nil {
			errutil.LogError(s.logger, "session identity lookup failed", err)
			s.renderError(c)
			c.Abort()
			return
		}
		if user == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(contextKeyUser, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user placed in the context by
// RequireAuth, or nil outside a protected route.
func CurrentUser(c *gin.Context) *auth.User {
	user, ok := c.Get(contextKeyUser)
	if !ok {
		return nil
	}
	u, ok := user.(*auth.User)
	if !ok {
		return nil
	}
	return u
}
