// Package ntp keeps the in-memory set of time sources assembled from
// single-leaf change events and renders it into the time-daemon config.
//
// A record must be created through CreateServer before any attribute of the
// same name can be set; attribute setters fail with types.ErrNotFound
// otherwise.
package ntp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"sysconfd/internal/types"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var errClosed = errors.New("ntp registry closed")

// Registry is the insertion-ordered collection of time sources
type Registry struct {
	mu      sync.Mutex
	servers map[string]*Server
	order   []string

	fs         afero.Fs
	configPath string
	service    ServiceController
	logger     *zap.Logger
	closed     bool
}

// NewRegistry creates an empty registry that renders into configPath on fs
func NewRegistry(fs afero.Fs, configPath string, service ServiceController, logger *zap.Logger) *Registry {
	return &Registry{
		servers:    make(map[string]*Server),
		fs:         fs,
		configPath: configPath,
		service:    service,
		logger:     logger,
	}
}

// CreateServer inserts a record with default fields. Re-creating an existing
// name is a no-op.
func (r *Registry) CreateServer(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.NewError(types.KindInvalidValue, "create ntp server", fmt.Errorf("empty server name"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return types.NewError(types.KindIOFailure, "create ntp server", errClosed)
	}
	if _, exists := r.servers[name]; exists {
		return nil
	}
	r.servers[name] = newServer(name)
	r.order = append(r.order, name)
	r.logger.Debug("NTP server created", zap.String("name", name))
	return nil
}

// RemoveServer deletes a record. It reports whether the record existed.
func (r *Registry) RemoveServer(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.servers[name]; !exists {
		return false
	}
	delete(r.servers, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Debug("NTP server removed", zap.String("name", name))
	return true
}

// SetAddress sets the address of an existing record
func (r *Registry) SetAddress(name, address string) error {
	return r.update("set address", name, func(s *Server) error {
		s.Address = strings.TrimSpace(address)
		return nil
	})
}

// SetPort sets the port of an existing record
func (r *Registry) SetPort(name, port string) error {
	return r.update("set port", name, func(s *Server) error {
		p, err := strconv.ParseUint(strings.TrimSpace(port), 10, 16)
		if err != nil {
			return types.NewError(types.KindParseError, "parse port", err)
		}
		s.Port = int(p)
		return nil
	})
}

// SetAssociationType sets the association type of an existing record
func (r *Registry) SetAssociationType(name, assoc string) error {
	return r.update("set association-type", name, func(s *Server) error {
		a, err := ParseAssociationType(assoc)
		if err != nil {
			return err
		}
		s.AssociationType = a
		return nil
	})
}

// SetIburst toggles the iburst flag of an existing record
func (r *Registry) SetIburst(name string, on bool) error {
	return r.update("set iburst", name, func(s *Server) error {
		s.Iburst = on
		return nil
	})
}

// SetPrefer toggles the prefer flag of an existing record
func (r *Registry) SetPrefer(name string, on bool) error {
	return r.update("set prefer", name, func(s *Server) error {
		s.Prefer = on
		return nil
	})
}

func (r *Registry) update(op, name string, fn func(*Server) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return types.NewError(types.KindIOFailure, op, errClosed)
	}
	s, ok := r.servers[name]
	if !ok {
		return types.NewError(types.KindNotFound, op, fmt.Errorf("ntp server %q", name))
	}
	return fn(s)
}

// Server returns a copy of the named record
func (r *Registry) Server(name string) (Server, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.servers[name]
	if !ok {
		return Server{}, false
	}
	return *s, true
}

// Servers returns copies of all records in insertion order
func (r *Registry) Servers() []Server {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Server, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.servers[name])
	}
	return out
}

// Render produces the time-daemon config text, one line per server
func (r *Registry) Render() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render()
}

func (r *Registry) render() []byte {
	var buf bytes.Buffer
	for _, name := range r.order {
		buf.WriteString(r.servers[name].line())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// WriteConfig replaces the time-daemon config file with the rendered registry
func (r *Registry) WriteConfig() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return types.NewError(types.KindIOFailure, "write ntp config", errClosed)
	}
	data := r.render()
	if err := writeFileAtomic(r.fs, r.configPath, data, 0644); err != nil {
		return types.NewError(types.KindIOFailure, "write ntp config", err)
	}
	r.logger.Info("NTP config written",
		zap.String("path", r.configPath),
		zap.Int("servers", len(r.order)))
	return nil
}

// Enable activates the time service
func (r *Registry) Enable(ctx context.Context) error {
	if err := r.service.Enable(ctx); err != nil {
		return types.NewError(types.KindIOFailure, "enable ntp service", err)
	}
	return nil
}

// Disable stops and deactivates the time service
func (r *Registry) Disable(ctx context.Context) error {
	if err := r.service.Disable(ctx); err != nil {
		return types.NewError(types.KindIOFailure, "disable ntp service", err)
	}
	return nil
}

// Close drops all records. Later mutations and config writes fail with
// types.ErrIO.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.servers = make(map[string]*Server)
	r.order = nil
	return nil
}
