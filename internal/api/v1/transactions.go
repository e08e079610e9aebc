package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sysconfd/internal/api/response"
	"sysconfd/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

type eventRequest struct {
	Path      string  `json:"path" validate:"required"`
	Operation string  `json:"operation" validate:"required"`
	Value     *string `json:"value"`
}

type transactionRequest struct {
	Phase  string         `json:"phase" validate:"required"`
	Events []eventRequest `json:"events" validate:"dive"`
}

// handleTransaction feeds one transaction phase to the dispatcher
func (api *API) handleTransaction(c *gin.Context) {
	resp := response.New(c, api.logger)

	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(err)
		return
	}
	if err := api.validate.Struct(&req); err != nil {
		resp.BadRequest(err)
		return
	}

	phase, err := types.ParsePhase(req.Phase)
	if err != nil {
		resp.Fail(err, nil)
		return
	}

	events := make([]types.ConfigChangeEvent, 0, len(req.Events))
	for _, e := range req.Events {
		op, err := types.ParseOperation(e.Operation)
		if err != nil {
			resp.Fail(err, nil)
			return
		}
		events = append(events, types.ConfigChangeEvent{
			Path:      e.Path,
			Operation: op,
			Value:     e.Value,
			Phase:     phase,
		})
	}

	// A transaction is applied to completion once started
	report, err := api.svc.Dispatcher.HandleTransaction(context.WithoutCancel(c.Request.Context()), phase, events)
	if err != nil {
		resp.Fail(err, report)
		return
	}

	resp.Success(report)
}

// listTransactions returns the most recent transaction reports
func (api *API) listTransactions(c *gin.Context) {
	resp := response.New(c, api.logger)

	if api.svc.Journal == nil {
		resp.Fail(types.NewError(types.KindNotFound, "list transactions", errors.New("no journal configured")), nil)
		return
	}

	limit := defaultListLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			resp.BadRequest(errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	reports, err := api.svc.Journal.ListTransactions(ctx, limit)
	if err != nil {
		if api.canceled(err, "Client canceled transaction list request") {
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			resp.Error(http.StatusGatewayTimeout, errors.New("request timeout"))
			return
		}
		api.logger.Error("Failed to list transactions", zap.Error(err))
		resp.Fail(err, nil)
		return
	}

	resp.Success(reports)
}

// getRunning returns the accepted running tree
func (api *API) getRunning(c *gin.Context) {
	response.New(c, api.logger).Success(api.svc.Dispatcher.Running())
}
