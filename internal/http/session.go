package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mangaslayer/internal/auth"
)

// SessionController tells the reader UI who it is and which CSRF token to send.
type SessionController struct {
	sm *auth.SessionManager
}

func NewSessionController(sm *auth.SessionManager) *SessionController {
	return &SessionController{sm: sm}
}

// Get handles GET /api/session
func (sc *SessionController) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"reader_id":  sc.sm.ReaderID(c.Request),
		"csrf_token": auth.GetCSRFToken(c),
	})
}

// Reset handles DELETE /api/session
func (sc *SessionController) Reset(c *gin.Context) {
	if err := sc.sm.Forget(c.Request); err != nil {
		respondInternalError(c, err, "reset session")
		return
	}
	c.Status(http.StatusNoContent)
}
