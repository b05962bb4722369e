package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // also imports "github.com/lib/pq"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"custody/app/storage/migrations"
)

const (
	defaultMaxOpenConns = 20
	connMaxLifetime     = 30 * time.Minute
)

type Postgres struct {
	DB *sqlx.DB

	now func() time.Time
}

func Connect(cfg Config) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", cfg.DBConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to the database")
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = defaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(connMaxLifetime)

	// auto-migrate the db
	if err = migrateDB(cfg); err != nil {
		return nil, multierr.Append(errors.Wrap(err, "failed to migrate the database"), db.Close())
	}

	return NewPostgres(db), nil
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{DB: db, now: time.Now}
}

func (p *Postgres) Close() error {
	return p.DB.Close()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

// inTx runs fn in a database transaction and rolls back if fn fails.
func (p *Postgres) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin a transaction")
	}

	if err = fn(tx); err != nil {
		return multierr.Append(err, tx.Rollback())
	}

	return errors.Wrap(tx.Commit(), "failed to commit a transaction")
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(ErrNotFound, what)
	}
	return errors.Wrapf(err, "failed to select %s", what)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

func migrateDB(cfg Config) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return errors.WithMessage(err, "failed to initialize a migration source")
	}

	migration, err := migrate.NewWithSourceInstance("iofs", source, cfg.DBConnectionStringForMigration())
	if err != nil {
		return errors.WithMessage(err, "failed to initialize a migration instance")
	}
	defer func() {
		_, _ = migration.Close()
	}()

	err = migration.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return errors.WithMessage(err, "failed to execute migrations")
}
