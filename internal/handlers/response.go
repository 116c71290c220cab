package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wavenote/wavenote-backend/internal/apierr"
)

// RespondError writes the subsystem's flat error envelope. publicMsg is what
// the client sees; internal detail stays server-side with the caller's log.
func RespondError(c *gin.Context, apiErr *apierr.Error, publicMsg string) {
	status := apiErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	body := gin.H{"error": publicMsg}
	if apiErr.Code != "" {
		body["code"] = apiErr.Code
	}
	c.JSON(status, body)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
