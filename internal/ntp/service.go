package ntp

import (
	"context"
	"errors"
	"fmt"

	"sysconfd/internal/tools"

	"go.uber.org/zap"
)

// ServiceController toggles the time service
type ServiceController interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// SystemdController drives the time service through systemctl. Units are
// tried in order and the first one that succeeds wins.
type SystemdController struct {
	runner tools.CommandRunner
	binary string
	units  []string
	logger *zap.Logger
}

// NewSystemdController creates a controller for the candidate units
func NewSystemdController(runner tools.CommandRunner, binary string, units []string, logger *zap.Logger) *SystemdController {
	if binary == "" {
		binary = "systemctl"
	}
	return &SystemdController{
		runner: runner,
		binary: binary,
		units:  units,
		logger: logger,
	}
}

// Enable starts the service and enables it at boot
func (c *SystemdController) Enable(ctx context.Context) error {
	return c.firstUnit(ctx, "enable", func(unit string) error {
		_, err := c.runner.Run(ctx, c.binary, "enable", "--now", unit)
		return err
	})
}

// Disable stops the service and removes it from boot
func (c *SystemdController) Disable(ctx context.Context) error {
	return c.firstUnit(ctx, "disable", func(unit string) error {
		if _, err := c.runner.Run(ctx, c.binary, "stop", unit); err != nil {
			return err
		}
		_, err := c.runner.Run(ctx, c.binary, "disable", unit)
		return err
	})
}

func (c *SystemdController) firstUnit(ctx context.Context, action string, fn func(unit string) error) error {
	if len(c.units) == 0 {
		return fmt.Errorf("no service unit configured for %s", action)
	}

	var errs []error
	for _, unit := range c.units {
		err := fn(unit)
		if err == nil {
			c.logger.Info("NTP service toggled",
				zap.String("action", action),
				zap.String("unit", unit))
			return nil
		}
		c.logger.Warn("NTP service unit failed, trying next",
			zap.String("action", action),
			zap.String("unit", unit),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", unit, err))
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("failed to %s time service: %w", action, errors.Join(errs...))
}
