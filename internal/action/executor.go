// Package action performs the imperative system operations: setting the
// real-time clock, restarting and powering off.
package action

import (
	"context"
	"fmt"
	"time"

	"sysconfd/internal/tools"
	"sysconfd/internal/types"
	"sysconfd/internal/validator"

	"go.uber.org/zap"
)

// Host is the part of the platform the executor drives directly
type Host interface {
	SetTime(t time.Time) error
	Sync()
}

// Commands are the power-management invocations, program first
type Commands struct {
	Restart  []string
	Shutdown []string
}

// DefaultCommands returns the shutdown(8) invocations
func DefaultCommands() Commands {
	return Commands{
		Restart:  []string{"shutdown", "-r", "now"},
		Shutdown: []string{"shutdown", "-P", "now"},
	}
}

// Executor runs clock and power actions
type Executor struct {
	host     Host
	runner   tools.CommandRunner
	commands Commands
	logger   *zap.Logger
}

// NewExecutor creates an action executor
func NewExecutor(host Host, runner tools.CommandRunner, commands Commands, logger *zap.Logger) *Executor {
	return &Executor{
		host:     host,
		runner:   runner,
		commands: commands,
		logger:   logger,
	}
}

// SetClock sets the real-time clock. Only YYYY-MM-DDThh:mm:ssZ is accepted.
func (e *Executor) SetClock(ctx context.Context, datetime string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validator.IsDatetime(datetime) {
		return types.NewError(types.KindParseError, "set clock",
			fmt.Errorf("datetime %q is not of the form YYYY-MM-DDThh:mm:ssZ", datetime))
	}
	t, err := time.Parse(types.DatetimeLayout, datetime)
	if err != nil {
		return types.NewError(types.KindParseError, "set clock", err)
	}

	if err := e.host.SetTime(t); err != nil {
		return types.NewError(types.KindIOFailure, "set clock", err)
	}
	e.logger.Info("System clock set", zap.String("datetime", datetime))
	return nil
}

// Restart flushes filesystem buffers and initiates a reboot
func (e *Executor) Restart(ctx context.Context) error {
	return e.power(ctx, "restart", e.commands.Restart)
}

// Shutdown flushes filesystem buffers and initiates a power-off
func (e *Executor) Shutdown(ctx context.Context) error {
	return e.power(ctx, "shutdown", e.commands.Shutdown)
}

func (e *Executor) power(ctx context.Context, action string, command []string) error {
	if len(command) == 0 {
		return types.NewError(types.KindIOFailure, action, fmt.Errorf("no %s command configured", action))
	}

	e.host.Sync()
	e.logger.Warn("Initiating system "+action, zap.Strings("command", command))

	if _, err := e.runner.Run(ctx, command[0], command[1:]...); err != nil {
		return types.NewError(types.KindIOFailure, action, err)
	}
	return nil
}
