package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wavenote/wavenote-backend/internal/apierr"
	"github.com/wavenote/wavenote-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.GetMe(c.Request.Context())
	if errors.Is(err, services.ErrUnauthenticated) {
		RespondError(c, apierr.New(http.StatusUnauthorized, "unauthenticated", err), "authentication required")
		return
	}
	if err != nil {
		RespondError(c, apierr.New(http.StatusInternalServerError, "store_unavailable", err), "internal error")
		return
	}
	if me == nil {
		// Provisioning lag, not access denial.
		RespondOK(c, gin.H{"me": nil, "provisioned": false, "message": "user not yet provisioned"})
		return
	}
	RespondOK(c, gin.H{"me": me, "provisioned": true})
}
