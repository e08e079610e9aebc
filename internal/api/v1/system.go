package v1

import (
	"context"
	"time"

	"sysconfd/internal/api/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type setDatetimeRequest struct {
	Datetime string `json:"datetime" validate:"required"`
}

// getSystemState returns the operational snapshot
func (api *API) getSystemState(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	snapshot, err := api.svc.State.Snapshot(ctx)
	if err != nil {
		if api.canceled(err, "Client canceled system state request") {
			return
		}
		api.logger.Error("Failed to build system state", zap.Error(err))
		resp.Fail(err, nil)
		return
	}

	resp.Success(snapshot)
}

// setCurrentDatetime sets the system clock
func (api *API) setCurrentDatetime(c *gin.Context) {
	resp := response.New(c, api.logger)

	var req setDatetimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(err)
		return
	}
	if err := api.validate.Struct(&req); err != nil {
		resp.BadRequest(err)
		return
	}

	if err := api.svc.Actions.SetClock(c.Request.Context(), req.Datetime); err != nil {
		if api.canceled(err, "Client canceled set-current-datetime request") {
			return
		}
		api.logger.Warn("Failed to set clock",
			zap.String("datetime", req.Datetime),
			zap.Error(err))
		resp.Fail(err, nil)
		return
	}

	resp.Success(gin.H{"datetime": req.Datetime})
}

// systemRestart reboots the host
func (api *API) systemRestart(c *gin.Context) {
	api.power(c, "restart", api.svc.Actions.Restart)
}

// systemShutdown powers the host off
func (api *API) systemShutdown(c *gin.Context) {
	api.power(c, "shutdown", api.svc.Actions.Shutdown)
}

func (api *API) power(c *gin.Context, action string, run func(context.Context) error) {
	resp := response.New(c, api.logger)

	if err := run(context.WithoutCancel(c.Request.Context())); err != nil {
		api.logger.Error("Power action failed",
			zap.String("action", action),
			zap.Error(err))
		resp.Fail(err, nil)
		return
	}

	resp.Accepted(gin.H{"action": action})
}
