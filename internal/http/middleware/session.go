package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/paperpath/docusign-connect/internal/domain"
)

// CookieName identifies the browser session carrying the token bundle.
const CookieName = "connect_session"

const contextKeySessionID = "connect_session_id"

// Session attaches a stable session identifier to every request. A missing
// or malformed cookie gets a fresh UUID; the identifier keys the token and
// state entries in the session store.
func Session() gin.HandlerFunc {
	maxAge := int(domain.RefreshWindow.Seconds())

	return func(c *gin.Context) {
		sid, err := c.Cookie(CookieName)
		if err != nil || !validSessionID(sid) {
			sid = uuid.NewString()
			c.SetCookie(CookieName, sid, maxAge, "/", "", false, true)
		}
		c.Set(contextKeySessionID, sid)
		c.Next()
	}
}

// GetSessionID returns the session identifier attached by Session.
func GetSessionID(c *gin.Context) (string, bool) {
	v, ok := c.Get(contextKeySessionID)
	if !ok {
		return "", false
	}
	sid, ok := v.(string)
	return sid, ok && sid != ""
}

func validSessionID(sid string) bool {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return false
	}
	_, err := uuid.Parse(sid)
	return err == nil
}
