package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/web3guy0/deploybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STRATEGY REGISTRY - Plug-in pattern for entry functions
// ═══════════════════════════════════════════════════════════════════════════════
//
// A strategy is a pure function over the bar history:
//   (bars, params) -> targets aligned to bars
//
// Only the target for the latest closed bar is consumed by the session
// loop. Names are resolved once at deploy time, never mid-session.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Func computes a target position for every bar in the series.
type Func func(bars []types.Bar, p Params) ([]types.Target, error)

// Params carries the hour-scoped strategy kwargs from the config file.
type Params map[string]any

// Float reads a numeric param, falling back to def.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Int reads an integer param, falling back to def.
func (p Params) Int(key string, def int) int {
	return int(p.Float(key, float64(def)))
}

// Ints reads a list param such as allowed_hours. Returns nil when the
// key is absent, meaning no restriction.
func (p Params) Ints(key string) []int {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	switch vs := raw.(type) {
	case []int:
		return vs
	case []any:
		out := make([]int, 0, len(vs))
		for _, v := range vs {
			if f, ok := v.(float64); ok {
				out = append(out, int(f))
			}
		}
		return out
	}
	return nil
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Func)
)

// Register adds a strategy under a name. Last registration wins, which
// lets a deployment shadow a built-in.
func Register(name string, fn Func) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = fn
}

// Lookup resolves a strategy by name.
func Lookup(name string) (Func, error) {
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q not registered (available: %v)", name, names())
	}
	return fn, nil
}

func names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
