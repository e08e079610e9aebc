package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sysconfd/internal/api/response"
	"sysconfd/internal/types"
	"sysconfd/internal/validator"
	"sysconfd/internal/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dispatcher applies transactions and exposes the running tree
type Dispatcher interface {
	HandleTransaction(ctx context.Context, phase types.Phase, events []types.ConfigChangeEvent) (*types.TransactionReport, error)
	Running() map[string]string
}

// StateProvider builds the operational snapshot
type StateProvider interface {
	Snapshot(ctx context.Context) (*types.OperationalSnapshot, error)
}

// Actions runs the imperative RPCs
type Actions interface {
	SetClock(ctx context.Context, datetime string) error
	Restart(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Journal lists handled transactions and reports datastore health
type Journal interface {
	ListTransactions(ctx context.Context, limit int) ([]types.TransactionReport, error)
	Ping(ctx context.Context) error
}

// Services are the backends the API serves from
type Services struct {
	Dispatcher Dispatcher
	State      StateProvider
	Actions    Actions
	Journal    Journal
}

// API represents the API
type API struct {
	svc      Services
	validate *validator.Validator
	logger   *zap.Logger
}

// NewAPI creates new API
func NewAPI(svc Services, logger *zap.Logger) *API {
	return &API{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers API routes
func (api *API) RegisterRoutes(r *gin.RouterGroup) {
	transactions := r.Group("/transactions")
	{
		transactions.POST("", api.handleTransaction)
		transactions.GET("", api.listTransactions)
	}

	r.GET("/running", api.getRunning)
	r.GET("/system-state", api.getSystemState)

	rpc := r.Group("/rpc")
	{
		rpc.POST("/set-current-datetime", api.setCurrentDatetime)
		rpc.POST("/system-restart", api.systemRestart)
		rpc.POST("/system-shutdown", api.systemShutdown)
	}

	r.GET("/healthz", api.healthCheck)
}

// healthCheck handles health check requests
func (api *API) healthCheck(c *gin.Context) {
	resp := response.New(c, api.logger)

	if api.svc.Journal != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := api.svc.Journal.Ping(ctx); err != nil {
			api.logger.Warn("Datastore unhealthy", zap.Error(err))
			resp.Error(http.StatusServiceUnavailable, errors.New("datastore unavailable"))
			return
		}
	}

	resp.Success(gin.H{"status": "ok", "version": version.Version})
}

// canceled reports whether the client went away before err happened
func (api *API) canceled(err error, msg string) bool {
	if errors.Is(err, context.Canceled) {
		api.logger.Info(msg)
		return true
	}
	return false
}
