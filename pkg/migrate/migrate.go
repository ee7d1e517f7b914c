package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are written on disk.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded exposes the migrations compiled into the binary, rooted at the
// migrations directory.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Runner applies goose migrations from a file system to a postgres database.
type Runner struct {
	db   *sql.DB
	fsys fs.FS
}

// NewRunner returns a Runner reading migrations from dir on disk, or from the
// embedded set when dir is empty.
func NewRunner(db *sql.DB, dir string) (*Runner, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	fsys := Embedded()
	if dir != "" {
		fsys = os.DirFS(dir)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("migrate: set dialect: %w", err)
	}
	return &Runner{db: db, fsys: fsys}, nil
}

func (r *Runner) Up(ctx context.Context) error {
	return r.run(ctx, "up")
}

func (r *Runner) Down(ctx context.Context) error {
	return r.run(ctx, "down")
}

// Status prints applied and pending migrations to stdout.
func (r *Runner) Status(ctx context.Context) error {
	return r.run(ctx, "status")
}

// To moves the schema up or down until it sits at version.
func (r *Runner) To(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("migrate: version %q is not YYYYMMDDHHMMSS: %w", version, err)
	}

	goose.SetBaseFS(r.fsys)
	defer goose.SetBaseFS(nil)

	current, err := goose.GetDBVersionContext(ctx, r.db)
	if err != nil {
		return fmt.Errorf("migrate: current version: %w", err)
	}

	switch {
	case current < target:
		err = goose.UpToContext(ctx, r.db, ".", target)
	case current > target:
		err = goose.DownToContext(ctx, r.db, ".", target)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate: %d -> %d: %w", current, target, err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, command string) error {
	goose.SetBaseFS(r.fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.RunContext(ctx, command, r.db, "."); err != nil {
		return fmt.Errorf("migrate: goose %s: %w", command, err)
	}
	return nil
}
