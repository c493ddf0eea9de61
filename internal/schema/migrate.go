package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"smorty/internal/apperr"
	"smorty/internal/ir"
)

// Planner ties together state loading, diffing, DDL application, and the
// archived-migration-file trail (spec.md §4.4). It execs raw DDL through
// gorm's connection the same way the teacher's db_init.go applies its
// index statements, rather than through gorm's AutoMigrate.
type Planner struct {
	DB      *gorm.DB
	BaseDir string
	Log     *zap.SugaredLogger
}

func NewPlanner(db *gorm.DB, baseDir string, log *zap.SugaredLogger) *Planner {
	return &Planner{DB: db, BaseDir: baseDir, Log: log}
}

// Result is what a migration run produced.
type Result struct {
	Plan          *Plan
	Applied       bool
	ArchivedFile  string
}

// Plan loads the previous state, diffs it against target, and returns
// the plan without touching the database or the state file.
func (p *Planner) Plan(target *ir.SchemaState) (*Plan, *ir.SchemaState, error) {
	store := NewStateStore(p.BaseDir)
	previous, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	plan, err := Diff(target, previous)
	if err != nil {
		return nil, nil, err
	}
	return plan, previous, nil
}

// Apply plans and, unless dryRun, applies the plan transactionally,
// archives the SQL to a numbered migration file, and persists the new
// state (spec.md §4.4: "every successful migration run, even a no-op,
// updates the recorded state").
func (p *Planner) Apply(target *ir.SchemaState, dryRun bool) (*Result, error) {
	plan, _, err := p.Plan(target)
	if err != nil {
		return nil, err
	}
	for _, w := range plan.Warnings {
		if p.Log != nil {
			p.Log.Warnw(w.Message)
		}
	}

	if dryRun {
		return &Result{Plan: plan, Applied: false}, nil
	}

	if len(plan.Statements) == 0 {
		store := NewStateStore(p.BaseDir)
		if err := store.Save(target); err != nil {
			return nil, err
		}
		return &Result{Plan: plan, Applied: false}, nil
	}

	if err := p.DB.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range plan.Statements {
			if err := tx.Exec(stmt.SQL).Error; err != nil {
				return apperr.Wrap(apperr.KindDb, "apply statement: "+stmt.SQL, err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	archived, err := p.archive(plan)
	if err != nil {
		return nil, err
	}

	store := NewStateStore(p.BaseDir)
	if err := store.Save(target); err != nil {
		return nil, err
	}

	return &Result{Plan: plan, Applied: true, ArchivedFile: archived}, nil
}

// archive writes the applied SQL to migrations/NNNN_schema.sql so
// the trail is reviewable in version control, numbered after whatever
// is already on disk.
func (p *Planner) archive(plan *Plan) (string, error) {
	dir := filepath.Join(p.BaseDir, "migrations")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "create migrations directory", err)
	}
	next, err := nextMigrationNumber(dir)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, stmt := range plan.Statements {
		b.WriteString(stmt.SQL)
		b.WriteString("\n")
	}
	name := fmt.Sprintf("%04d_schema.sql", next)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "archive migration file", err)
	}
	return path, nil
}

func nextMigrationNumber(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 1, nil
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "list migrations directory", err)
	}
	max := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(e.Name(), "%04d_", &n); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

// StatementsInOrder returns the applied DDL in application order, for
// callers (CLI, dry-run printer) that want raw SQL rather than the
// bucketed Plan shape.
func (pl *Plan) StatementsInOrder() []string {
	out := make([]string, len(pl.Statements))
	for i, s := range pl.Statements {
		out[i] = s.SQL
	}
	return out
}
