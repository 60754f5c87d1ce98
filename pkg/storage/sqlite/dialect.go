package sqlite

import (
	"github.com/LENAX/dependent-engine/pkg/storage"
)

// SQLiteDialect SQLite方言实现（对外导出）
type SQLiteDialect struct{}

// NewSQLiteDialect 创建SQLite方言实例
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

// Name 返回方言名称
func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

// UpsertSQL 冲突时只更新updateColumns，不删除旧行
func (d *SQLiteDialect) UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string {
	return storage.OnConflictUpsertSQL(tableName, columns, conflictColumn, updateColumns)
}

// CreateTableSQL 通用DDL即为SQLite语法
func (d *SQLiteDialect) CreateTableSQL(schema string) string {
	return schema
}

// ConfigureDB 开启WAL并设置忙等待超时
func (d *SQLiteDialect) ConfigureDB() []string {
	return []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
}

var _ storage.Dialect = (*SQLiteDialect)(nil)
