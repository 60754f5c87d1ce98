package storage

import (
	"fmt"
	"strings"
)

// Dialect 数据库方言接口（对外导出）
// 屏蔽SQLite/MySQL/PostgreSQL之间的DDL与UPSERT差异
type Dialect interface {
	// Name 返回方言名称（如 "sqlite", "mysql", "postgres"）
	Name() string

	// UpsertSQL 返回INSERT或UPDATE的SQL语句（使用:name命名参数）
	// tableName: 表名
	// columns: 列名列表
	// conflictColumn: 冲突判断列（通常是主键）
	// updateColumns: 需要更新的列（不含主键）
	UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string

	// CreateTableSQL 将通用DDL转换为当前数据库的DDL
	CreateTableSQL(schema string) string

	// ConfigureDB 返回连接建立后需要执行的配置SQL
	ConfigureDB() []string
}

// InsertSQL 返回带:name命名参数的INSERT前缀（对外导出）
func InsertSQL(tableName string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
		tableName, strings.Join(columns, ", "), strings.Join(columns, ", :"))
}

// OnConflictUpsertSQL SQLite(3.24+)与PostgreSQL共用的 ON CONFLICT DO UPDATE 语句（对外导出）
func OnConflictUpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string {
	sets := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		sets[i] = col + " = excluded." + col
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s",
		InsertSQL(tableName, columns), conflictColumn, strings.Join(sets, ", "))
}
