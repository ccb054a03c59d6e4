package controller

import (
	"context"

	"algojudge/internal/submission/service"
	"algojudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Runner executes RUN requests.
type Runner interface {
	Run(ctx context.Context, req service.RunRequest) (*service.RunResponse, error)
}

// RunController handles the synchronous RUN endpoint.
type RunController struct {
	runner Runner
}

func NewRunController(runner Runner) *RunController {
	return &RunController{runner: runner}
}

// Run executes code against sample or custom inputs.
func (h *RunController) Run(c *gin.Context) {
	var req service.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	req.UserID = userIDOf(c, req.UserID)
	req.ClientIP = c.ClientIP()
	resp, err := h.runner.Run(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}
