package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxPushPayload = 64 << 10

// PushController accepts push events over HTTP.
type PushController struct {
	push PushHandler
}

func NewPushController(push PushHandler) *PushController {
	return &PushController{push: push}
}

// Push handles POST /api/push
// The raw body is the payload; an empty body produces the default alert.
func (pc *PushController) Push(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxPushPayload)
	payload, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "push payload too large", "too_large")
			return
		}
		respondBadRequest(c, "failed to read push payload")
		return
	}

	n := pc.push.HandlePush(c.Request.Context(), payload)
	respondAccepted(c, "notification delivered", n)
}
