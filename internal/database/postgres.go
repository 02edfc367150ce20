package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
)

const (
	maxTxAttempts = 3

	pqSerializationFailure = "40001"
	pqUniqueViolation      = "23505"
)

type PgStore struct {
	conn *sql.DB
}

func NewPgStore(dsn string) (*PgStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &PgStore{conn: db}, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("migration conn: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		conn.Close()
		return fmt.Errorf("new migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func (db *PgStore) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *PgStore) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Tx runs fn in a SERIALIZABLE transaction, retrying when postgres aborts
// it with a serialization failure.
func (db *PgStore) Tx(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = db.runTx(ctx, fn)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func (db *PgStore) runTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqSerializationFailure
}

func translateErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Constraint)
	}
	return err
}
