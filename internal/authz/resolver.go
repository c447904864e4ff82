package authz

import "context"

// Resolver combines the role default policy with per-user overrides into an
// effective decision. It holds no mutable state; besides the two store reads
// it is pure computation, safe to call any number of times per request.
type Resolver struct {
	policies  RolePolicyStore
	overrides UserOverrideStore
}

// NewResolver constructs a Resolver over the two stores.
func NewResolver(policies RolePolicyStore, overrides UserOverrideStore) *Resolver {
	return &Resolver{policies: policies, overrides: overrides}
}

// Effective resolves one (actor, capability) pair. Precedence is strict: a
// key present in the actor's override map wins, otherwise the role policy
// applies, otherwise the answer is false.
func (r *Resolver) Effective(ctx context.Context, actor Identity, key CapabilityKey) (bool, error) {
	overrides, err := r.overrides.Get(ctx, actor.ID)
	if err != nil {
		return false, err
	}
	if value, ok := overrides[key]; ok {
		return value, nil
	}
	policy, err := r.policies.Get(ctx, actor.Role)
	if err != nil {
		return false, err
	}
	return policy[key], nil
}

// EffectiveAny reports whether at least one of the keys resolves true.
// An empty key list never authorizes. Both stores are read once regardless
// of how many keys are checked.
func (r *Resolver) EffectiveAny(ctx context.Context, actor Identity, keys []CapabilityKey) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	overrides, err := r.overrides.Get(ctx, actor.ID)
	if err != nil {
		return false, err
	}
	var policy map[CapabilityKey]bool
	for _, key := range keys {
		if value, ok := overrides[key]; ok {
			if value {
				return true, nil
			}
			continue
		}
		if policy == nil {
			policy, err = r.policies.Get(ctx, actor.Role)
			if err != nil {
				return false, err
			}
		}
		if policy[key] {
			return true, nil
		}
	}
	return false, nil
}
