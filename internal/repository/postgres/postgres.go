package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
)

// DefaultActor is written to the audit columns when no actor is configured.
const DefaultActor = "TEAMS_MS"

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool  *pgxpool.Pool
	actor string
	now   func() time.Time
}

// Option customises a Repository.
type Option func(*Repository)

// WithActor sets the audit actor.
func WithActor(actor string) Option {
	return func(r *Repository) {
		if strings.TrimSpace(actor) != "" {
			r.actor = actor
		}
	}
}

// WithClock overrides the audit clock.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs a Repository.
func New(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{
		pool:  pool,
		actor: DefaultActor,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ensure Repository satisfies interfaces.
var (
	_ repository.TeamRepository   = (*Repository)(nil)
	_ repository.CardRepository   = (*Repository)(nil)
	_ repository.MemberRepository = (*Repository)(nil)
	_ repository.Transactor       = (*Repository)(nil)
)

// querier is the subset shared by the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// db returns the transaction bound to ctx, or the pool.
func (r *Repository) db(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.pool
}

// WithinTx runs fn in a transaction. A ctx that already carries one is reused.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// stamp returns the audit time. Postgres keeps microseconds, so the value
// is truncated to round-trip unchanged.
func (r *Repository) stamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// mapErr translates driver errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, repository.ErrDuplicate)
		case "23503":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, repository.ErrNotFound)
		case "22P02":
			// malformed uuid; no row can match it
			return repository.ErrNotFound
		}
	}
	return err
}

func nilIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func timePtrToNil(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func (r *Repository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var total int64
	if err := r.db(ctx).QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, mapErr(err)
	}
	return total, nil
}

func (r *Repository) exists(ctx context.Context, query string, id string) (bool, error) {
	var ok bool
	if err := r.db(ctx).QueryRow(ctx, query, id).Scan(&ok); err != nil {
		if errors.Is(mapErr(err), repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

func (r *Repository) deleteOne(ctx context.Context, query string, id string) error {
	tag, err := r.db(ctx).Exec(ctx, query, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) deleteMany(ctx context.Context, query string, id string) error {
	if _, err := r.db(ctx).Exec(ctx, query, id); err != nil {
		if errors.Is(mapErr(err), repository.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}
