package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/example/qfold/db/migrations"
)

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens dsn with the pgx driver and applies any pending
// migrations before returning.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &PostgresStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

func (p *PostgresStore) ensureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL)`); err != nil {
		return err
	}
	files, err := listMigrationFiles(migrations.Files)
	if err != nil {
		return err
	}
	for _, file := range files {
		var applied bool
		if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, file).Scan(&applied); err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := p.applyMigration(ctx, file); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresStore) applyMigration(ctx context.Context, file string) error {
	sqlBytes, err := migrations.Files.ReadFile(file)
	if err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("apply migration %s: %w", file, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`, file, time.Now().UTC()); err != nil {
		return fmt.Errorf("record migration %s: %w", file, err)
	}
	return tx.Commit()
}

func listMigrationFiles(migFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migFS, ".")
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func (p *PostgresStore) StartRun(ctx context.Context, run RunRecord) (RunRecord, error) {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO fold_runs (run_id, protein_id, sequence, max_iter, status, started_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		run.RunID, run.ProteinID, run.Sequence, run.MaxIter, run.Status, run.StartedAt,
	)
	if err != nil {
		return RunRecord{}, err
	}
	return run, nil
}

func (p *PostgresStore) FinishRun(ctx context.Context, runID string, out RunOutcome) error {
	run, ok, err := p.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	applyOutcome(&run, out)
	_, err = p.db.ExecContext(ctx,
		`UPDATE fold_runs SET status=$2, error=$3, qubits=$4, best_energy=$5, structures=$6, artifact_uri=$7, finished_at=$8, duration_millis=$9
		 WHERE run_id=$1`,
		run.RunID, run.Status, run.Error, run.Qubits, nullFloat(run.BestEnergy), run.Structures, run.ArtifactURI, run.FinishedAt, run.DurationMillis,
	)
	return err
}

const runColumns = `run_id, protein_id, sequence, max_iter, status, error, qubits, best_energy, structures, artifact_uri, started_at, finished_at, duration_millis`

func (p *PostgresStore) GetRun(ctx context.Context, runID string) (RunRecord, bool, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM fold_runs WHERE run_id=$1`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, false, nil
	}
	if err != nil {
		return RunRecord{}, false, err
	}
	return run, true, nil
}

func (p *PostgresStore) ListRuns(ctx context.Context, q RunQuery) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM fold_runs WHERE ($1 = '' OR protein_id = $1) AND ($2 = '' OR status = $2) ORDER BY started_at, run_id`
	args := []any{q.ProteinID, q.Status}
	if q.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, q.Limit)
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (RunRecord, error) {
	var (
		r          RunRecord
		bestEnergy sql.NullFloat64
		finishedAt sql.NullTime
	)
	err := s.Scan(&r.RunID, &r.ProteinID, &r.Sequence, &r.MaxIter, &r.Status, &r.Error, &r.Qubits,
		&bestEnergy, &r.Structures, &r.ArtifactURI, &r.StartedAt, &finishedAt, &r.DurationMillis)
	if err != nil {
		return RunRecord{}, err
	}
	if bestEnergy.Valid {
		v := bestEnergy.Float64
		r.BestEnergy = &v
	}
	if finishedAt.Valid {
		r.FinishedAt = finishedAt.Time
	}
	return r, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
