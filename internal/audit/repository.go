package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested entry does not exist.
var ErrNotFound = errors.New("audit: entry not found")

// Filters narrows a timeline query. Zero values mean no filter.
type Filters struct {
	From   time.Time
	To     time.Time
	Actor  string
	Entity string
	Action string
	Query  string
	Limit  int
	Offset int
}

// Repository provides append-only persistence for audit entries. The
// application never updates or deletes rows here.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts one entry.
func (r *Repository) Append(ctx context.Context, entry Entry) error {
	before, err := marshalSnapshot(entry.Before)
	if err != nil {
		return fmt.Errorf("audit: encode before snapshot: %w", err)
	}
	after, err := marshalSnapshot(entry.After)
	if err != nil {
		return fmt.Errorf("audit: encode after snapshot: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, actor_name, actor_role, entity, entity_id, action, outcome, description, before_state, after_state, ip, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ActorID,
		entry.ActorName,
		entry.ActorRole,
		entry.Entity,
		optionalText(entry.EntityID),
		string(entry.Action),
		string(entry.Outcome),
		entry.Description,
		before,
		after,
		optionalText(entry.IP),
		optionalText(entry.UserAgent),
		pgtype.Timestamptz{Time: entry.At.UTC(), Valid: true})
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// List returns entries newest-first. Snapshots are omitted; they are a
// detail-view concern.
func (r *Repository) List(ctx context.Context, filters Filters) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, actor_name, actor_role, entity, COALESCE(entity_id, ''), action, outcome, description, COALESCE(ip, ''), COALESCE(user_agent, ''), occurred_at
		FROM audit_logs
		WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		  AND ($2::timestamptz IS NULL OR occurred_at < $2)
		  AND ($3::text IS NULL OR actor_name ILIKE '%' || $3 || '%')
		  AND ($4::text IS NULL OR entity = $4)
		  AND ($5::text IS NULL OR action = $5)
		  AND ($6::text IS NULL OR description ILIKE '%' || $6 || '%')
		ORDER BY occurred_at DESC, id DESC
		LIMIT $7 OFFSET $8`,
		optionalTime(filters.From),
		optionalTime(filters.To),
		optionalText(filters.Actor),
		optionalText(filters.Entity),
		optionalText(filters.Action),
		optionalText(filters.Query),
		filters.Limit,
		filters.Offset)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var action, outcome string
		var at pgtype.Timestamptz
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.ActorName, &entry.ActorRole, &entry.Entity, &entry.EntityID, &action, &outcome, &entry.Description, &entry.IP, &entry.UserAgent, &at); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		entry.Action = ActionKind(action)
		entry.Outcome = Outcome(outcome)
		entry.At = at.Time
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: rows: %w", err)
	}
	return entries, nil
}

// Get fetches one entry including its before/after snapshots.
func (r *Repository) Get(ctx context.Context, id int64) (Entry, error) {
	var entry Entry
	var action, outcome string
	var before, after []byte
	var at pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `
		SELECT id, actor_id, actor_name, actor_role, entity, COALESCE(entity_id, ''), action, outcome, description, before_state, after_state, COALESCE(ip, ''), COALESCE(user_agent, ''), occurred_at
		FROM audit_logs WHERE id = $1`, id).
		Scan(&entry.ID, &entry.ActorID, &entry.ActorName, &entry.ActorRole, &entry.Entity, &entry.EntityID, &action, &outcome, &entry.Description, &before, &after, &entry.IP, &entry.UserAgent, &at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("audit: get: %w", err)
	}
	entry.Action = ActionKind(action)
	entry.Outcome = Outcome(outcome)
	entry.At = at.Time
	if len(before) > 0 {
		_ = json.Unmarshal(before, &entry.Before)
	}
	if len(after) > 0 {
		_ = json.Unmarshal(after, &entry.After)
	}
	return entry, nil
}

// Purge drops entries older than the cutoff. Retention is enforced by the
// worker cron, never inline with request handling.
func (r *Repository) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("audit: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

func marshalSnapshot(snap map[string]any) ([]byte, error) {
	if snap == nil {
		return nil, nil
	}
	return json.Marshal(snap)
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}

func optionalTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

var _ Appender = (*Repository)(nil)
