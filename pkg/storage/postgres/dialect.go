package postgres

import (
	"regexp"

	"github.com/LENAX/dependent-engine/pkg/storage"
)

var datetimeType = regexp.MustCompile(`\bDATETIME\b`)

// PostgresDialect PostgreSQL方言实现（对外导出）
type PostgresDialect struct{}

// NewPostgresDialect 创建PostgreSQL方言实例
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

// Name 返回方言名称
func (d *PostgresDialect) Name() string {
	return "postgres"
}

// UpsertSQL sqlx的NamedExec会把:name占位符转换为$1, $2, ...
func (d *PostgresDialect) UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string {
	return storage.OnConflictUpsertSQL(tableName, columns, conflictColumn, updateColumns)
}

// CreateTableSQL PostgreSQL没有DATETIME类型，其余类型（BIGINT/VARCHAR/INTEGER）原样保留
func (d *PostgresDialect) CreateTableSQL(schema string) string {
	return datetimeType.ReplaceAllString(schema, "TIMESTAMP")
}

// ConfigureDB 实例时间统一按UTC存取
func (d *PostgresDialect) ConfigureDB() []string {
	return []string{"SET timezone = 'UTC';"}
}

var _ storage.Dialect = (*PostgresDialect)(nil)
