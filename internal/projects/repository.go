package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/protrack-gov/protrack/internal/shared"
)

// ErrDuplicateCode indicates the project code is already registered.
var ErrDuplicateCode = errors.New("projects: code already in use")

// Filters narrows project listings.
type Filters struct {
	MDA          string
	Status       Status
	ContractorID int64
}

// Repository provides PostgreSQL backed persistence for projects.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `id, code, title, description, mda, contractor_id, budget_ngn, status, start_date, end_date, created_at, updated_at`

// List returns projects matching the filters, newest first.
func (r *Repository) List(ctx context.Context, f Filters) ([]Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE ($1::text IS NULL OR mda = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::bigint IS NULL OR contractor_id = $3)
		ORDER BY created_at DESC, id DESC`,
		optionalText(f.MDA), optionalText(string(f.Status)), optionalInt(f.ContractorID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Get fetches one project by id.
func (r *Repository) Get(ctx context.Context, id int64) (Project, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, shared.ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

// Create inserts a new project in draft status.
func (r *Repository) Create(ctx context.Context, p Project) (Project, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO projects (code, title, description, mda, contractor_id, budget_ngn, status, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING `+projectColumns,
		p.Code, p.Title, p.Description, p.MDA, p.ContractorID, p.BudgetNGN, string(p.Status), p.StartDate, p.EndDate)
	created, err := scanProject(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Project{}, ErrDuplicateCode
		}
		return Project{}, err
	}
	return created, nil
}

// Update persists editable fields and the current status.
func (r *Repository) Update(ctx context.Context, p Project) (Project, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE projects SET title = $2, description = $3, mda = $4, budget_ngn = $5,
			status = $6, start_date = $7, end_date = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING `+projectColumns,
		p.ID, p.Title, p.Description, p.MDA, p.BudgetNGN, string(p.Status), p.StartDate, p.EndDate)
	updated, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, shared.ErrNotFound
		}
		return Project{}, err
	}
	return updated, nil
}

// SetStatus moves the project to a new workflow state.
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) (Project, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE projects SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+projectColumns,
		id, string(status))
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, shared.ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

// Delete removes a project.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	var status string
	var start, end pgtype.Date
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&p.ID, &p.Code, &p.Title, &p.Description, &p.MDA, &p.ContractorID,
		&p.BudgetNGN, &status, &start, &end, &createdAt, &updatedAt); err != nil {
		return Project{}, err
	}
	p.Status = Status(status)
	p.StartDate = start.Time
	p.EndDate = end.Time
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time
	return p, nil
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func optionalInt(v int64) pgtype.Int8 {
	if v == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: v, Valid: true}
}
