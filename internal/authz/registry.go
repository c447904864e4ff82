package authz

import (
	"fmt"
	"sort"
	"strings"
)

// CapabilityKey identifies one grantable operation in {action}_{module} form.
type CapabilityKey string

// String returns the raw key.
func (k CapabilityKey) String() string {
	return string(k)
}

type parsedKey struct {
	action string
	module string
}

// Registry is the closed set of capability keys. It is built once at startup
// and read-only afterwards, so lookups need no synchronization.
type Registry struct {
	keys   []CapabilityKey
	parsed map[CapabilityKey]parsedKey
}

// NewRegistry builds a registry from the given keys. It fails when any key
// violates the {action}_{module} convention or appears twice, so a malformed
// key set stops the process before it serves a single request.
func NewRegistry(keys []CapabilityKey) (*Registry, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("authz: registry requires at least one capability key")
	}
	parsed := make(map[CapabilityKey]parsedKey, len(keys))
	ordered := make([]CapabilityKey, 0, len(keys))
	for _, key := range keys {
		if _, exists := parsed[key]; exists {
			return nil, fmt.Errorf("authz: duplicate capability key %q", key)
		}
		action, module, err := splitKey(key)
		if err != nil {
			return nil, err
		}
		parsed[key] = parsedKey{action: action, module: module}
		ordered = append(ordered, key)
	}
	return &Registry{keys: ordered, parsed: parsed}, nil
}

// DefaultRegistry builds the registry over the platform capability set.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(AllCapabilityKeys())
}

// AllKeys returns every registered key in declaration order.
func (r *Registry) AllKeys() []CapabilityKey {
	keys := make([]CapabilityKey, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Has reports whether the key belongs to the registry.
func (r *Registry) Has(key CapabilityKey) bool {
	_, ok := r.parsed[key]
	return ok
}

// ActionOf returns the action component of a registered key.
func (r *Registry) ActionOf(key CapabilityKey) (string, bool) {
	p, ok := r.parsed[key]
	return p.action, ok
}

// ModuleOf returns the module component of a registered key.
func (r *Registry) ModuleOf(key CapabilityKey) (string, bool) {
	p, ok := r.parsed[key]
	return p.module, ok
}

// ModuleGroup collects the keys of one module for grouped display and bulk
// select-all editing.
type ModuleGroup struct {
	Module string          `json:"module"`
	Keys   []CapabilityKey `json:"keys"`
}

// Modules groups all keys by module, modules sorted alphabetically and keys
// kept in declaration order.
func (r *Registry) Modules() []ModuleGroup {
	byModule := make(map[string][]CapabilityKey)
	for _, key := range r.keys {
		module := r.parsed[key].module
		byModule[module] = append(byModule[module], key)
	}
	names := make([]string, 0, len(byModule))
	for name := range byModule {
		names = append(names, name)
	}
	sort.Strings(names)
	groups := make([]ModuleGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, ModuleGroup{Module: name, Keys: byModule[name]})
	}
	return groups
}

// ValidateKeys checks every key against the registry and returns a
// KeyValidationError naming each unknown key, or nil when all are known.
func (r *Registry) ValidateKeys(keys []CapabilityKey) error {
	var invalid []string
	for _, key := range keys {
		if !r.Has(key) {
			invalid = append(invalid, string(key))
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return &KeyValidationError{Keys: invalid}
}

func splitKey(key CapabilityKey) (action, module string, err error) {
	raw := string(key)
	idx := strings.Index(raw, "_")
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", fmt.Errorf("authz: capability key %q does not match {action}_{module}", key)
	}
	return raw[:idx], raw[idx+1:], nil
}
