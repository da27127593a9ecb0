package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is a one-shot message carried across a redirect.
type Notice struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Notices keeps pending notices in a short-lived cookie.
type Notices struct {
	cookieName string
}

// NewNotices stores notices in the named cookie.
func NewNotices(cookieName string) *Notices {
	return &Notices{cookieName: cookieName}
}

// Flash queues a notice for the next request.
func (n *Notices) Flash(c *gin.Context, category, message string) {
	data, err := json.Marshal(Notice{Category: category, Message: message})
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(n.cookieName, base64.RawURLEncoding.EncodeToString(data), 60, "/", "", false, true)
}

// Pop returns the pending notice, if any, and clears it.
func (n *Notices) Pop(c *gin.Context) *Notice {
	raw, err := c.Cookie(n.cookieName)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(n.cookieName, "", -1, "/", "", false, true)

	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var notice Notice
	if err := json.Unmarshal(data, &notice); err != nil {
		return nil
	}
	return &notice
}
