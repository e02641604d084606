package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docschema/internal/domain"
	"docschema/internal/port"
)

type runRepo struct {
	db *sqlx.DB
}

// NewRunRepo creates a SQL-backed RunRepository.
func NewRunRepo(db *sqlx.DB) port.RunRepository {
	return &runRepo{db: db}
}

func (r *runRepo) Create(ctx context.Context, run *domain.IngestRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().UTC()
	if run.Warnings == nil {
		run.Warnings = []domain.Warning{}
	}
	raw, err := json.Marshal(run.Warnings)
	if err != nil {
		return fmt.Errorf("runRepo.Create marshal warnings: %w", err)
	}
	run.WarningsJSON = string(raw)

	query := r.db.Rebind(`INSERT INTO ingest_runs
		(id, table_name, document_name, method, extracted, inserted, skipped, warnings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.db.ExecContext(ctx, query,
		run.ID.String(), run.TableName, run.DocumentName, string(run.Method),
		run.Extracted, run.Inserted, run.Skipped, run.WarningsJSON, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("runRepo.Create: %w", err)
	}
	return nil
}

func (r *runRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.IngestRun, error) {
	var run domain.IngestRun
	err := r.db.GetContext(ctx, &run, r.db.Rebind("SELECT * FROM ingest_runs WHERE id = ?"), id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("runRepo.GetByID: %w", err)
	}
	if err := decodeWarnings(&run); err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns runs newest first. An empty table lists runs of all tables.
func (r *runRepo) List(ctx context.Context, table string, offset, limit int) ([]domain.IngestRun, int, error) {
	where, args := "", []any{}
	if table != "" {
		where = " WHERE table_name = ?"
		args = append(args, table)
	}

	var total int
	err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM ingest_runs"+where), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("runRepo.List count: %w", err)
	}

	var runs []domain.IngestRun
	err = r.db.SelectContext(ctx, &runs,
		r.db.Rebind("SELECT * FROM ingest_runs"+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?"),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("runRepo.List: %w", err)
	}
	for i := range runs {
		if err := decodeWarnings(&runs[i]); err != nil {
			return nil, 0, err
		}
	}
	return runs, total, nil
}

func decodeWarnings(run *domain.IngestRun) error {
	run.Warnings = []domain.Warning{}
	if run.WarningsJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(run.WarningsJSON), &run.Warnings); err != nil {
		return fmt.Errorf("runRepo: decoding warnings of run %s: %w", run.ID, err)
	}
	return nil
}
