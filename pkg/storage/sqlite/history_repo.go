package sqlite

import (
	"fmt"

	"github.com/LENAX/dependent-engine/pkg/storage/sqlbase"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// NewHistoryRepo 基于已有连接创建SQLite执行历史Repository（对外导出）
func NewHistoryRepo(db *sqlx.DB) (*sqlbase.HistoryRepo, error) {
	return sqlbase.NewHistoryRepo(db, NewSQLiteDialect())
}

// NewHistoryRepoFromDSN 通过DSN创建SQLite执行历史Repository（对外导出）
func NewHistoryRepoFromDSN(dsn string) (*sqlbase.HistoryRepo, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	// 配置SQLite优化
	if err := sqlbase.Configure(db, NewSQLiteDialect()); err != nil {
		db.Close()
		return nil, fmt.Errorf("配置SQLite失败: %w", err)
	}

	repo, err := NewHistoryRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}
