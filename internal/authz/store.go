package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGPolicyStore persists role policies and user overrides in PostgreSQL.
// Role policies live one row per role with a jsonb grant map; user overrides
// are a jsonb column on the user row. Both writes are single-row upserts
// with last-write-wins semantics.
type PGPolicyStore struct {
	pool     *pgxpool.Pool
	registry *Registry
}

// NewPGPolicyStore constructs the store. Every write is validated against
// the registry before touching the database, so an invalid key set never
// partially applies.
func NewPGPolicyStore(pool *pgxpool.Pool, registry *Registry) *PGPolicyStore {
	return &PGPolicyStore{pool: pool, registry: registry}
}

// Get returns the role's policy as a total map over the registry. Roles
// never written yet and keys never granted both read as false.
func (s *PGPolicyStore) Get(ctx context.Context, role Role) (map[CapabilityKey]bool, error) {
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT grants FROM role_policies WHERE role = $1`, string(role)).Scan(&raw)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("authz: load role policy: %w", err)
	}
	stored := make(map[CapabilityKey]bool)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, fmt.Errorf("authz: decode role policy: %w", err)
		}
	}
	full := make(map[CapabilityKey]bool, len(s.registry.keys))
	for _, key := range s.registry.AllKeys() {
		full[key] = stored[key]
	}
	return full, nil
}

// Set replaces the role's entire policy. Keys outside the registry reject
// the whole write with a KeyValidationError naming each offender.
func (s *PGPolicyStore) Set(ctx context.Context, role Role, grants map[CapabilityKey]bool) error {
	if !ValidRole(role) {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if err := s.registry.ValidateKeys(mapKeys(grants)); err != nil {
		return err
	}
	raw, err := json.Marshal(grants)
	if err != nil {
		return fmt.Errorf("authz: encode role policy: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO role_policies (role, grants, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (role) DO UPDATE SET grants = EXCLUDED.grants, updated_at = NOW()`,
		string(role), raw)
	if err != nil {
		return fmt.Errorf("authz: store role policy: %w", err)
	}
	return nil
}

// PGOverrideStore persists per-user capability overrides.
type PGOverrideStore struct {
	pool     *pgxpool.Pool
	registry *Registry
}

// NewPGOverrideStore constructs the store.
func NewPGOverrideStore(pool *pgxpool.Pool, registry *Registry) *PGOverrideStore {
	return &PGOverrideStore{pool: pool, registry: registry}
}

// Get returns the user's sparse override map. Absence of a key means defer
// to the role policy, never deny.
func (s *PGOverrideStore) Get(ctx context.Context, userID int64) (map[CapabilityKey]bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT permission_overrides FROM users WHERE id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrUnknownUser, userID)
		}
		return nil, fmt.Errorf("authz: load overrides: %w", err)
	}
	overrides := make(map[CapabilityKey]bool)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &overrides); err != nil {
			return nil, fmt.Errorf("authz: decode overrides: %w", err)
		}
	}
	return overrides, nil
}

// Set replaces the user's entire override map. The previous map is not
// merged; effective permissions are recomputed from scratch on every save.
func (s *PGOverrideStore) Set(ctx context.Context, userID int64, overrides map[CapabilityKey]bool) error {
	if err := s.registry.ValidateKeys(mapKeys(overrides)); err != nil {
		return err
	}
	raw, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("authz: encode overrides: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET permission_overrides = $2, updated_at = NOW() WHERE id = $1`, userID, raw)
	if err != nil {
		return fmt.Errorf("authz: store overrides: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrUnknownUser, userID)
	}
	return nil
}

func mapKeys(m map[CapabilityKey]bool) []CapabilityKey {
	keys := make([]CapabilityKey, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}

var (
	_ RolePolicyStore   = (*PGPolicyStore)(nil)
	_ UserOverrideStore = (*PGOverrideStore)(nil)
)
