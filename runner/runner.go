// Package runner applies and rolls back versioned migration files and
// records them in the schema_migrations table.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ridoystarlord/ormato/database"
	"github.com/ridoystarlord/ormato/dialect"
	"github.com/ridoystarlord/ormato/generator"
	"github.com/ridoystarlord/ormato/orm"
	"github.com/ridoystarlord/ormato/query"
	"github.com/ridoystarlord/ormato/schema"
)

// Rollback target that undoes every applied migration.
const Zero = "0"

// Record is a row of the schema_migrations table.
type Record struct {
	Version     string
	Name        string
	Checksum    string
	AppliedAt   time.Time
	ExecutionMs int64
	ExecutedBy  string
}

func (Record) TableName() string { return "schema_migrations" }
func (Record) Alias() string     { return "sm" }

// Direction of a migration step.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Step is one migration to run in one direction.
type Step struct {
	Migration Migration
	Direction Direction
}

// SQL returns the statements the step executes.
func (s Step) SQL() string {
	if s.Direction == Down {
		return s.Migration.Down
	}
	return s.Migration.Up
}

// Runner migrates a database to the versions found in a directory.
type Runner struct {
	dir     string
	session *orm.Session
	model   *schema.Model
	mapping generator.TypeMapping
	logger  *zap.SugaredLogger
}

// New returns a runner for the migration files in dir. A nil logger
// disables logging.
func New(db database.DB, dir string, logger *zap.SugaredLogger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	mapping, err := dialect.TypeMapping(db.Dialect())
	if err != nil {
		return nil, err
	}
	reg := schema.NewRegistry()
	model, err := reg.Register(Record{}, schema.NewPrimaryKey("version"))
	if err != nil {
		return nil, err
	}
	return &Runner{
		dir:     dir,
		session: orm.New(db, reg, logger),
		model:   model,
		mapping: mapping,
		logger:  logger,
	}, nil
}

// Dir returns the migrations directory.
func (r *Runner) Dir() string { return r.dir }

func (r *Runner) ensureTable(ctx context.Context) error {
	ddl, err := generator.CreateTable(r.model, r.mapping)
	if err != nil {
		return err
	}
	ddl = "CREATE TABLE IF NOT EXISTS " + strings.TrimPrefix(ddl, "CREATE TABLE ")
	if _, err := r.session.Exec(ctx, query.Raw(ddl)); err != nil {
		return fmt.Errorf("failed to create %s table: %w", r.model.Table(), err)
	}
	return nil
}

// History returns the applied migration records, newest first. A limit
// of zero or less returns all of them.
func (r *Runner) History(ctx context.Context, limit int) ([]Record, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	q := query.Select(r.model).OrderBy("version DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var records []Record
	if err := r.session.Find(ctx, q, &records); err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	return records, nil
}

// CurrentVersion returns the newest applied version. ok is false when no
// migration has been applied.
func (r *Runner) CurrentVersion(ctx context.Context) (version string, ok bool, err error) {
	records, err := r.History(ctx, 1)
	if err != nil {
		return "", false, err
	}
	if len(records) == 0 {
		return "", false, nil
	}
	return records[0].Version, true, nil
}

// state reads the migration files and marks the applied ones. An applied
// migration whose file is gone or was edited is an error.
func (r *Runner) state(ctx context.Context) ([]Migration, error) {
	files, err := Versions(r.dir)
	if err != nil {
		return nil, err
	}
	records, err := r.History(ctx, 0)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(files))
	for i, m := range files {
		index[m.Version] = i
	}
	for _, rec := range records {
		i, ok := index[rec.Version]
		if !ok {
			return nil, fmt.Errorf("applied migration %s_%s has no file in %s", rec.Version, rec.Name, r.dir)
		}
		if files[i].Checksum != rec.Checksum {
			return nil, fmt.Errorf("migration %s was modified after it was applied (checksum mismatch)", files[i].Path)
		}
		files[i].AppliedAt = rec.AppliedAt
	}
	return files, nil
}

// Status splits the migrations into applied and pending ones, both in
// version order.
func (r *Runner) Status(ctx context.Context) (applied, pending []Migration, err error) {
	migrations, err := r.state(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range migrations {
		if m.Applied() {
			applied = append(applied, m)
		} else {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

// Preview returns the steps Migrate would run for target without running
// them.
func (r *Runner) Preview(ctx context.Context, target string) ([]Step, error) {
	return r.plan(ctx, target)
}

func (r *Runner) plan(ctx context.Context, target string) ([]Step, error) {
	migrations, err := r.state(ctx)
	if err != nil {
		return nil, err
	}
	if len(migrations) == 0 {
		return nil, nil
	}

	switch target {
	case "":
		target = migrations[len(migrations)-1].Version
	case Zero:
	default:
		found := false
		for _, m := range migrations {
			if m.Version == target {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown target version %q", target)
		}
	}

	var steps []Step
	for _, m := range migrations {
		if !m.Applied() && m.Version <= target {
			steps = append(steps, Step{Migration: m, Direction: Up})
		}
	}
	for i := len(migrations) - 1; i >= 0; i-- {
		if m := migrations[i]; m.Applied() && m.Version > target {
			steps = append(steps, Step{Migration: m, Direction: Down})
		}
	}
	return steps, nil
}

// Migrate brings the database to target: pending migrations up to target
// are applied in version order and applied migrations above it are rolled
// back newest first. An empty target means the newest file; Zero rolls
// everything back. Each step runs in its own transaction. The steps that
// completed are returned, also when a later one fails.
func (r *Runner) Migrate(ctx context.Context, target string) ([]Step, error) {
	steps, err := r.plan(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		r.logger.Info("no pending migrations")
		return nil, nil
	}
	return r.execute(ctx, steps)
}

func (r *Runner) execute(ctx context.Context, steps []Step) ([]Step, error) {
	done := make([]Step, 0, len(steps))
	for _, step := range steps {
		if err := r.run(ctx, step); err != nil {
			return done, err
		}
		done = append(done, step)
	}
	return done, nil
}

// Rollback undoes the newest steps applied migrations. Asking for more
// steps than are applied rolls back all of them. Pending migrations are
// left alone.
func (r *Runner) Rollback(ctx context.Context, steps int) ([]Step, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("rollback steps must be positive, got %d", steps)
	}
	records, err := r.History(ctx, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		r.logger.Info("no migrations to roll back")
		return nil, nil
	}
	target := Zero
	if steps < len(records) {
		target = records[steps].Version
	} else if steps > len(records) {
		r.logger.Warnf("only %d migrations applied, rolling back all", len(records))
	}
	planned, err := r.plan(ctx, target)
	if err != nil {
		return nil, err
	}
	var down []Step
	for _, step := range planned {
		if step.Direction == Down {
			down = append(down, step)
		}
	}
	return r.execute(ctx, down)
}

func (r *Runner) run(ctx context.Context, step Step) error {
	m := step.Migration
	start := time.Now()
	err := r.session.Transaction(ctx, func(tx *orm.Session) error {
		if sql := step.SQL(); sql != "" {
			if _, err := tx.Exec(ctx, query.Raw(sql)); err != nil {
				return err
			}
		}
		if step.Direction == Down {
			_, err := tx.Delete(ctx, Record{Version: m.Version})
			return err
		}
		return tx.Insert(ctx, Record{
			Version:     m.Version,
			Name:        m.Name,
			Checksum:    m.Checksum,
			AppliedAt:   time.Now().UTC(),
			ExecutionMs: time.Since(start).Milliseconds(),
			ExecutedBy:  currentUser(),
		})
	})
	if err != nil {
		r.logger.Errorw("migration failed", "version", m.Version, "name", m.Name, "direction", step.Direction.String(), "error", err)
		return fmt.Errorf("migration %s_%s (%s): %w", m.Version, m.Name, step.Direction, err)
	}
	r.logger.Infow("migration complete",
		"version", m.Version,
		"name", m.Name,
		"direction", step.Direction.String(),
		"elapsed", time.Since(start),
	)
	return nil
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

// IsNoMigrations reports whether err is ErrNoMigrations.
func IsNoMigrations(err error) bool { return errors.Is(err, ErrNoMigrations) }
