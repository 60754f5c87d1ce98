package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/dependent-engine/pkg/storage"
	"github.com/LENAX/dependent-engine/pkg/storage/memory"
	"github.com/LENAX/dependent-engine/pkg/storage/mysql"
	"github.com/LENAX/dependent-engine/pkg/storage/postgres"
	"github.com/LENAX/dependent-engine/pkg/storage/sqlbase"
	pkgsqlite "github.com/LENAX/dependent-engine/pkg/storage/sqlite"
)

// PoolConfig 连接池配置（内部使用），零值表示使用驱动默认值
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RepositoryFactory 执行历史存储工厂接口（内部使用）
type RepositoryFactory interface {
	// HistoryRepository 获取执行历史Repository
	HistoryRepository() storage.ProcessHistoryRepository
	// Ping 检查存储是否可用
	Ping() error
	// Close 关闭数据库连接
	Close() error
}

// NewRepositoryFactory 创建存储工厂（内部方法）
// dbType: 数据库类型（sqlite/mysql/postgres/memory）
// dsn: 数据库连接字符串，memory类型忽略
func NewRepositoryFactory(dbType, dsn string, pool PoolConfig) (RepositoryFactory, error) {
	switch dbType {
	case "memory":
		return &memoryFactory{repo: memory.NewHistoryRepo()}, nil
	case "sqlite":
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
		return newSQLFactory(dbType, dsn, pool, pkgsqlite.NewHistoryRepoFromDSN)
	case "mysql":
		return newSQLFactory(dbType, dsn, pool, mysql.NewHistoryRepoFromDSN)
	case "postgres", "postgresql":
		return newSQLFactory(dbType, dsn, pool, postgres.NewHistoryRepoFromDSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// ensureSQLiteDir 确保SQLite数据库文件所在目录存在
func ensureSQLiteDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create sqlite data dir failed: %w", err)
	}
	return nil
}

// sqlFactory 基于sqlx的数据库工厂（内部实现）
type sqlFactory struct {
	repo *sqlbase.HistoryRepo
}

func newSQLFactory(dbType, dsn string, pool PoolConfig, open func(dsn string) (*sqlbase.HistoryRepo, error)) (*sqlFactory, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is required", dbType)
	}
	repo, err := open(dsn)
	if err != nil {
		return nil, fmt.Errorf("create %s repository failed: %w", dbType, err)
	}
	applyPool(repo.GetDB(), pool)
	return &sqlFactory{repo: repo}, nil
}

func applyPool(db *sqlx.DB, pool PoolConfig) {
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}
}

func (f *sqlFactory) HistoryRepository() storage.ProcessHistoryRepository {
	return f.repo
}

func (f *sqlFactory) Ping() error {
	return f.repo.GetDB().Ping()
}

func (f *sqlFactory) Close() error {
	return f.repo.Close()
}

// memoryFactory 内存存储工厂（内部实现）
type memoryFactory struct {
	repo *memory.HistoryRepo
}

func (f *memoryFactory) HistoryRepository() storage.ProcessHistoryRepository {
	return f.repo
}

func (f *memoryFactory) Ping() error {
	return nil
}

func (f *memoryFactory) Close() error {
	return nil
}
