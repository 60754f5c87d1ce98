package mysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LENAX/dependent-engine/pkg/storage"
	driver "github.com/go-sql-driver/mysql"
)

// errDupKeyName MySQL索引已存在的错误码
const errDupKeyName = 1061

// MySQLDialect MySQL方言实现（对外导出）
type MySQLDialect struct{}

// NewMySQLDialect 创建MySQL方言实例
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

// Name 返回方言名称
func (d *MySQLDialect) Name() string {
	return "mysql"
}

// UpsertSQL 返回MySQL的UPSERT语句（使用ON DUPLICATE KEY UPDATE）
func (d *MySQLDialect) UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string {
	updateParts := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updateParts[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}
	return storage.InsertSQL(tableName, columns) + " ON DUPLICATE KEY UPDATE " + strings.Join(updateParts, ", ")
}

// CreateTableSQL 转换DDL为MySQL兼容格式
func (d *MySQLDialect) CreateTableSQL(schema string) string {
	result := strings.ReplaceAll(schema, "AUTOINCREMENT", "AUTO_INCREMENT")

	// 添加引擎声明
	if !strings.Contains(result, "ENGINE=") && strings.Contains(result, "CREATE TABLE") {
		result = strings.TrimRight(strings.TrimSpace(result), ";") + " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;"
	}

	return result
}

// ConfigureDB 返回MySQL配置SQL
func (d *MySQLDialect) ConfigureDB() []string {
	return []string{
		"SET SESSION sql_mode='STRICT_TRANS_TABLES,NO_ZERO_IN_DATE,NO_ZERO_DATE,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION';",
	}
}

// IgnoreDDLError MySQL不支持 CREATE INDEX IF NOT EXISTS，重复建索引的错误可忽略
func (d *MySQLDialect) IgnoreDDLError(err error) bool {
	var mysqlErr *driver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == errDupKeyName
}

// 确保实现接口
var _ storage.Dialect = (*MySQLDialect)(nil)
