// Package session wires the signed cookie session and its flash messages.
package session

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CookieName is the name of the session cookie
const CookieName = "fyyur_session"

// Middleware installs a cookie backed session signed with secret
func Middleware(secret []byte, secure bool) gin.HandlerFunc {
	store := cookie.NewStore(secret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(CookieName, store)
}

func enabled(c *gin.Context) bool {
	_, ok := c.Get(sessions.DefaultKey)
	return ok
}

// Flash queues a message for the next rendered page
func Flash(c *gin.Context, msg string) {
	if !enabled(c) {
		return
	}
	s := sessions.Default(c)
	s.AddFlash(msg)
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Failed to save flash")
	}
}

// Flashes pops every queued message
func Flashes(c *gin.Context) []string {
	if !enabled(c) {
		return nil
	}
	s := sessions.Default(c)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Failed to clear flashes")
	}

	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}
