package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/signalsfoundry/cootrans/model"
)

// ErrFrozen is returned when a datum is added after Freeze.
var ErrFrozen = errors.New("registry is frozen")

// Registry is an in-memory, thread-safe store of datums keyed by planet name.
// A loader fills it, then freezes it before it is published to readers.
type Registry struct {
	mu sync.RWMutex

	datums  map[string]*model.Datum
	aliases map[string]string // alias key -> datum key
	version string
	frozen  bool
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		datums:  make(map[string]*model.Datum),
		aliases: make(map[string]string),
	}
}

// NormalizeKey turns a planet identifier into its lookup key.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Add registers a datum under its name and aliases. It returns an error if
// the name or any alias is already taken, or if the registry is frozen.
func (r *Registry) Add(d model.Datum) error {
	key := NormalizeKey(d.Name)
	if key == "" {
		return fmt.Errorf("datum name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}
	if r.taken(key) {
		return fmt.Errorf("datum %q already registered", d.Name)
	}
	aliasKeys := make([]string, 0, len(d.Aliases))
	for _, a := range d.Aliases {
		ak := NormalizeKey(a)
		if ak == "" || ak == key {
			continue
		}
		if r.taken(ak) {
			return fmt.Errorf("alias %q of datum %q already registered", a, d.Name)
		}
		aliasKeys = append(aliasKeys, ak)
	}

	d.Key = key
	d.Aliases = append([]string(nil), d.Aliases...)
	r.datums[key] = &d
	for _, ak := range aliasKeys {
		r.aliases[ak] = key
	}
	return nil
}

func (r *Registry) taken(key string) bool {
	if _, ok := r.datums[key]; ok {
		return true
	}
	_, ok := r.aliases[key]
	return ok
}

// Lookup resolves a planet name or alias. The bool is false when the planet
// is not registered.
func (r *Registry) Lookup(name string) (model.Datum, bool) {
	if r == nil {
		return model.Datum{}, false
	}
	key := NormalizeKey(name)
	if key == "" {
		return model.Datum{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[key]; ok {
		key = target
	}
	d, ok := r.datums[key]
	if !ok {
		return model.Datum{}, false
	}
	return *d, true
}

// List returns a snapshot of all datums sorted by key.
func (r *Registry) List() []model.Datum {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]model.Datum, 0, len(r.datums))
	for _, d := range r.datums {
		res = append(res, *d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })
	return res
}

// Len returns the number of registered datums, aliases excluded.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.datums)
}

// SetVersion records the version string declared by the datum set.
func (r *Registry) SetVersion(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.version = v
}

// Version returns the datum set version, empty if none was declared.
func (r *Registry) Version() string {
	if r == nil {
		return ""
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Freeze rejects further additions. Lookups keep working.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}
