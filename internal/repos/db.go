package repos

import (
	"embed"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// timestamps are stored as fixed-width UTC text so they sort lexically on both engines
const tsLayout = "2006-01-02 15:04:05.000000"

func now() string { return time.Now().UTC().Format(tsLayout) }

func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres
	}
	return driverSQLite
}

// OpenDB connects to SQLite (file path or ":memory:") or PostgreSQL
// (postgres:// URL) and applies pending migrations.
func OpenDB(dsn string) (*sqlx.DB, error) {
	driver := driverFor(dsn)
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == driverSQLite {
		// a single connection keeps :memory: databases alive and serializes writers
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if driver == driverSQLite {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return nil, err
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded migrations. The migrate instance is not closed
// because closing it would close db as well.
func Migrate(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	var drv database.Driver
	switch db.DriverName() {
	case driverPostgres:
		drv, err = postgres.WithInstance(db.DB, &postgres.Config{})
	default:
		drv, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), drv)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	v, dirty, _ := m.Version()
	log.Printf("[db] driver=%s schema_version=%d dirty=%t", db.DriverName(), v, dirty)
	return nil
}
