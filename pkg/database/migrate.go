package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationState 当前 schema 版本
type MigrationState struct {
	Version uint
	Dirty   bool
	Empty   bool // 尚未执行任何迁移
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("加载迁移文件失败: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "clinic_schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("创建迁移驱动失败: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("初始化迁移实例失败: %w", err)
	}
	return m, nil
}

func readState(m *migrate.Migrate) (MigrationState, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationState{Empty: true}, nil
	}
	if err != nil {
		return MigrationState{}, fmt.Errorf("读取迁移版本失败: %w", err)
	}
	return MigrationState{Version: version, Dirty: dirty}, nil
}

// RunMigrations 应用全部未执行的迁移；dirty 状态直接报错，需人工修复
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	before, err := readState(m)
	if err != nil {
		return err
	}
	if before.Dirty {
		return fmt.Errorf("数据库迁移处于 dirty 状态 (version=%d)，请人工修复后重试", before.Version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	after, err := readState(m)
	if err != nil {
		return err
	}
	logger.Info("数据库迁移完成",
		zap.Uint("from_version", before.Version),
		zap.Uint("version", after.Version),
	)
	return nil
}

// RollbackMigrations 回滚 steps 个版本
func RollbackMigrations(db *sql.DB, steps int, logger *zap.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("回滚步数必须大于 0")
	}
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("回滚迁移失败: %w", err)
	}
	state, err := readState(m)
	if err != nil {
		return err
	}
	logger.Info("数据库迁移已回滚", zap.Int("steps", steps), zap.Uint("version", state.Version), zap.Bool("empty", state.Empty))
	return nil
}

// MigrationStatus 查询当前 schema 版本
func MigrationStatus(db *sql.DB) (MigrationState, error) {
	m, err := newMigrator(db)
	if err != nil {
		return MigrationState{}, err
	}
	return readState(m)
}
