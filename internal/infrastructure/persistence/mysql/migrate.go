package mysql

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus 適用済みマイグレーションの状態
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Applied bool
}

// Migrator 埋め込みSQLによるスキーマ管理
type Migrator struct {
	m  *migrate.Migrate
	db *sql.DB
}

// NewMigrator 新しいMigratorを作成
// dsnは複数文を実行できるよう multiStatements=true を含む必要がある
func NewMigrator(dsn string) (*Migrator, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		_ = db.Close()
		return nil, wrapErr("failed to create mysql driver", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "mysql", driver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{m: m, db: db}, nil
}

// Up 未適用のマイグレーションを全て適用する。適用したものがなければfalse
func (mg *Migrator) Up() (bool, error) {
	if err := mg.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("failed to run migrations: %w", err)
	}
	return true, nil
}

// Down 指定したステップ数だけロールバックする
func (mg *Migrator) Down(steps int) (bool, error) {
	if steps <= 0 {
		return false, fmt.Errorf("invalid steps value: %d", steps)
	}
	if err := mg.m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("failed to rollback migrations: %w", err)
	}
	return true, nil
}

// Status 現在のバージョンを返す
func (mg *Migrator) Status() (MigrationStatus, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to get migration version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty, Applied: true}, nil
}

// Close ソースとデータベース接続を閉じる
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr, mg.db.Close())
}
