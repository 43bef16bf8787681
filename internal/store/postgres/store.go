// Package postgres backs the repositories with PostgreSQL through pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sedeops/autoassign/internal/store"
	"github.com/sedeops/autoassign/pkg/cerr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	Pool *pgxpool.Pool
}

// Open connects, runs pending migrations and returns the repositories.
// Closing the returned Repositories closes the pool.
func Open(ctx context.Context, dsn string, maxConns int32) (*store.Repositories, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db := &DB{Pool: pool}
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db.Repositories(), nil
}

func (db *DB) Repositories() *store.Repositories {
	repos := &store.Repositories{
		Tasks:             &TaskRepository{db: db},
		Groups:            &GroupRepository{db: db},
		GroupWorkers:      &GroupWorkerRepository{db: db},
		Workers:           &WorkerRepository{db: db},
		AuditLog:          &AuditLogRepository{db: db},
		PushSubscriptions: &PushSubscriptionRepository{db: db},
	}
	return repos.WithCloser(func() error {
		db.Pool.Close()
		return nil
	})
}

type migration struct {
	version int
	name    string
	sql     string
}

// Migrate applies the embedded migrations not yet recorded in
// schema_migrations, in version order.
func (db *DB) Migrate(ctx context.Context) error {
	applied := make(map[int]bool)
	rows, err := db.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err == nil {
		for rows.Next() {
			var v int
			if err := rows.Scan(&v); err != nil {
				break
			}
			applied[v] = true
		}
		rows.Close()
	}

	files, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	var migs []migration
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}
		v, err := strconv.Atoi(strings.SplitN(strings.TrimSuffix(f.Name(), ".sql"), "_", 2)[0])
		if err != nil || applied[v] {
			continue
		}
		body, err := migrationsFS.ReadFile("migrations/" + f.Name())
		if err != nil {
			return err
		}
		migs = append(migs, migration{version: v, name: f.Name(), sql: string(body)})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].version < migs[j].version })

	for _, m := range migs {
		if _, err := db.Pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
		if _, err := db.Pool.Exec(ctx,
			`INSERT INTO schema_migrations(version, applied_at) VALUES($1, $2) ON CONFLICT (version) DO NOTHING`,
			m.version, time.Now().Unix()); err != nil {
			return err
		}
	}
	return nil
}

const uniqueViolation = "23505"

// wrapError maps pgx errors onto cerr codes; target names the record kind.
func wrapError(target string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return cerr.NewError(cerr.NotFound, fmt.Sprintf("%s not found", target), err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("%s already exists", target), err)
	}
	return cerr.NewError(cerr.Internal, fmt.Sprintf("failed to access %s", target), err)
}

// requireRow turns an update that touched nothing into NotFound.
func requireRow(target string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return wrapError(target, err)
	}
	if tag.RowsAffected() == 0 {
		return cerr.NewError(cerr.NotFound, fmt.Sprintf("%s not found", target), nil)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
