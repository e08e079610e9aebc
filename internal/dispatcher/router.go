package dispatcher

import (
	"context"
	"sort"

	"sysconfd/internal/types"
)

// applyFunc applies one event. It reports false when the event was accepted
// without touching the system.
type applyFunc func(ctx context.Context, ev types.ConfigChangeEvent, txn *txnState) (bool, error)

type prefixRoute struct {
	prefix string
	apply  applyFunc
}

// Router maps leaf paths to appliers. Exact paths win over prefixes, and
// longer prefixes win over shorter ones.
type Router struct {
	exact    map[string]applyFunc
	prefixes []prefixRoute
	fallback applyFunc
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{exact: make(map[string]applyFunc)}
}

// Handle routes exactly path to fn
func (r *Router) Handle(path string, fn applyFunc) {
	r.exact[path] = fn
}

// HandlePrefix routes prefix and everything below it to fn
func (r *Router) HandlePrefix(prefix string, fn applyFunc) {
	r.prefixes = append(r.prefixes, prefixRoute{prefix: prefix, apply: fn})
	sort.SliceStable(r.prefixes, func(i, j int) bool {
		return len(r.prefixes[i].prefix) > len(r.prefixes[j].prefix)
	})
}

// SetFallback sets the applier for unmatched paths
func (r *Router) SetFallback(fn applyFunc) {
	r.fallback = fn
}

// Route finds the applier for path. It returns nil if nothing matches and no
// fallback is set.
func (r *Router) Route(path string) applyFunc {
	if fn, ok := r.exact[path]; ok {
		return fn
	}
	for _, p := range r.prefixes {
		if underPrefix(path, p.prefix) {
			return p.apply
		}
	}
	return r.fallback
}

// underPrefix reports whether path is prefix or a node below it
func underPrefix(path, prefix string) bool {
	if len(path) < len(prefix) || path[:len(prefix)] != prefix {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	switch path[len(prefix)] {
	case '/', '[':
		return true
	}
	return false
}
