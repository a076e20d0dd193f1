package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the ledger schema at dbPath up to date.
func RunMigrations(dbPath string) error {
	// Separate connection so the migrator can close it freely
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Ledger is the SQLite transaction store. Imported transactions are never
// deleted and only their category fields can be updated afterwards.
type Ledger struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

// ImportResult counts the outcome of Import.
type ImportResult struct {
	Added   int
	Skipped int
}

// RunRecord is the audit row written for every analytics run.
type RunRecord struct {
	ID           string
	StartedAt    time.Time
	ModelVersion string
	Transactions int
	Degraded     []string
}

// OpenLedger opens the database at dbPath, creating and migrating it as needed.
func OpenLedger(dbPath string, logger logging.Logger) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), models.PermissionDirectory); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Ledger{db: db, logger: logging.OrNop(logger), now: time.Now}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Import appends transactions not already present. Existing IDs are skipped
// untouched. New rows get increasing sequence numbers in input order.
func (l *Ledger) Import(ctx context.Context, txns []models.Transaction) (ImportResult, error) {
	var res ImportResult
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM transactions`).Scan(&next); err != nil {
		return res, fmt.Errorf("read sequence: %w", err)
	}

	importedAt := l.now().UTC().Format(time.RFC3339)
	for i, t := range txns {
		if t.ID == "" {
			return ImportResult{}, &analyticserror.DataError{Record: i, Field: "id", Reason: "required"}
		}
		var confidence sql.NullFloat64
		if t.Confidence != nil {
			confidence = sql.NullFloat64{Float64: *t.Confidence, Valid: true}
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, seq, date, description, amount, category, account, confidence, needs_review, imported_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			t.ID, next+1, t.Date.Format(models.DateLayout), t.Description, t.Amount.String(),
			t.Category, t.Account, confidence, boolToInt(t.NeedsReview), importedAt)
		if err != nil {
			return ImportResult{}, fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			res.Skipped++
			continue
		}
		next++
		res.Added++
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("commit import: %w", err)
	}
	l.logger.Info("Transactions imported",
		logging.F("added", res.Added),
		logging.F("skipped", res.Skipped))
	return res, nil
}

// Snapshot reads the whole ledger ordered by date and sequence.
func (l *Ledger) Snapshot(ctx context.Context) (models.Snapshot, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, seq, date, description, amount, category, account, confidence, needs_review
		FROM transactions
		ORDER BY date, seq`)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	snap := models.Snapshot{TakenAt: l.now().UTC()}
	for rows.Next() {
		var (
			t          models.Transaction
			date       string
			amount     string
			confidence sql.NullFloat64
			review     int
		)
		if err := rows.Scan(&t.ID, &t.Seq, &date, &t.Description, &amount, &t.Category, &t.Account, &confidence, &review); err != nil {
			return models.Snapshot{}, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = time.Parse(models.DateLayout, date); err != nil {
			return models.Snapshot{}, fmt.Errorf("transaction %s: bad date %q: %w", t.ID, date, err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return models.Snapshot{}, fmt.Errorf("transaction %s: bad amount %q: %w", t.ID, amount, err)
		}
		if confidence.Valid {
			c := confidence.Float64
			t.Confidence = &c
		}
		t.NeedsReview = review != 0
		snap.Transactions = append(snap.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("iterate transactions: %w", err)
	}
	return snap, nil
}

// UpdateCategories writes back the category, confidence and review flag of
// txns. Every other column is left as imported. Unknown IDs are ignored.
func (l *Ledger) UpdateCategories(ctx context.Context, txns []models.Transaction) (int, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `UPDATE transactions SET category = ?, confidence = ?, needs_review = ? WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("prepare update: %w", err)
	}
	defer stmt.Close()

	updated := 0
	for _, t := range txns {
		var confidence sql.NullFloat64
		if t.Confidence != nil {
			confidence = sql.NullFloat64{Float64: *t.Confidence, Valid: true}
		}
		result, err := stmt.ExecContext(ctx, t.Category, confidence, boolToInt(t.NeedsReview), t.ID)
		if err != nil {
			return 0, fmt.Errorf("update transaction %s: %w", t.ID, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			updated++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

// RecordRun stores the audit row of a run.
func (l *Ledger) RecordRun(ctx context.Context, run RunRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, model_version, transactions, degraded)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.ModelVersion, run.Transactions,
		strings.Join(run.Degraded, ","))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RunCount returns the number of recorded runs.
func (l *Ledger) RunCount(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
