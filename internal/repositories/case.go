package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/models"
	"github.com/myrjola/sheerluck-engine/internal/sqlite"
)

var ErrUnknownCase = errors.NewSentinel("unknown case")

// CaseListing is a stored case without its content.
type CaseListing struct {
	ID         string            `db:"id" json:"id"`
	Name       string            `db:"name" json:"name"`
	Difficulty models.Difficulty `db:"difficulty" json:"difficulty"`
	Canonical  bool              `db:"canonical" json:"canonical"`
	Created    string            `db:"created" json:"created"`
}

type CaseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewCaseRepository(db *sqlite.Database, logger *slog.Logger) *CaseRepository {
	return &CaseRepository{
		db:     db,
		logger: logger.With(slog.String("source", "CaseRepository")),
	}
}

// Create stores a newly generated case. Case ids are unique, storing the same id twice fails.
func (r *CaseRepository) Create(ctx context.Context, c *models.Case) error {
	definition, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal case", slog.String("case_id", c.ID))
	}
	stmt := `INSERT INTO cases (id, name, difficulty, definition) VALUES (:id, :name, :difficulty, :definition)`
	if _, err = r.db.ReadWrite.NamedExecContext(ctx, stmt, map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"difficulty": string(c.Difficulty),
		"definition": string(definition),
	}); err != nil {
		return errors.Wrap(err, "insert case", slog.String("case_id", c.ID))
	}
	return nil
}

// UpsertCanonical stores the canonical case, replacing an older version of it.
func (r *CaseRepository) UpsertCanonical(ctx context.Context, c *models.Case) error {
	definition, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal case", slog.String("case_id", c.ID))
	}
	stmt := `INSERT INTO cases (id, name, difficulty, definition, canonical)
VALUES (:id, :name, :difficulty, :definition, 1)
ON CONFLICT (id) DO UPDATE SET name       = excluded.name,
                               difficulty = excluded.difficulty,
                               definition = excluded.definition,
                               canonical  = 1
WHERE definition <> excluded.definition`
	if _, err = r.db.ReadWrite.NamedExecContext(ctx, stmt, map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"difficulty": string(c.Difficulty),
		"definition": string(definition),
	}); err != nil {
		return errors.Wrap(err, "upsert canonical case", slog.String("case_id", c.ID))
	}
	return nil
}

// Get returns the case with id or ErrUnknownCase.
func (r *CaseRepository) Get(ctx context.Context, id string) (*models.Case, error) {
	var definition string
	if err := r.db.ReadOnly.GetContext(ctx, &definition, `SELECT definition FROM cases WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrUnknownCase, "read case", slog.String("case_id", id))
		}
		return nil, errors.Wrap(err, "read case", slog.String("case_id", id))
	}
	var c models.Case
	if err := json.Unmarshal([]byte(definition), &c); err != nil {
		return nil, errors.Wrap(err, "unmarshal case", slog.String("case_id", id))
	}
	return &c, nil
}

// List returns the most recently created cases first.
func (r *CaseRepository) List(ctx context.Context, limit int) ([]CaseListing, error) {
	var listings []CaseListing
	stmt := `SELECT id, name, difficulty, canonical, created FROM cases ORDER BY created DESC, id LIMIT ?`
	if err := r.db.ReadOnly.SelectContext(ctx, &listings, stmt, limit); err != nil {
		return nil, errors.Wrap(err, "list cases")
	}
	return listings, nil
}

func (r *CaseRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.ReadOnly.GetContext(ctx, &count, `SELECT COUNT(*) FROM cases`); err != nil {
		return 0, errors.Wrap(err, "count cases")
	}
	return count, nil
}
