package mysql

import (
	"fmt"
	"log"
	"strings"

	"github.com/LENAX/dependent-engine/pkg/storage/sqlbase"
	"github.com/jmoiron/sqlx"
)

// NewHistoryRepo 基于已有连接创建MySQL执行历史Repository（对外导出）
func NewHistoryRepo(db *sqlx.DB) (*sqlbase.HistoryRepo, error) {
	return sqlbase.NewHistoryRepo(db, NewMySQLDialect())
}

// NewHistoryRepoFromDSN 通过DSN创建MySQL执行历史Repository（对外导出）
// dsn格式: user:password@tcp(host:port)/dbname?parseTime=true
func NewHistoryRepoFromDSN(dsn string) (*sqlbase.HistoryRepo, error) {
	db, err := sqlx.Open("mysql", normalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	// sql_mode 属于会话级配置，失败时只记录不中断
	if err := sqlbase.Configure(db, NewMySQLDialect()); err != nil {
		log.Printf("⚠️ [存储] 配置MySQL会话失败: %v", err)
	}

	repo, err := NewHistoryRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// normalizeDSN 确保DSN包含parseTime=true，时间列才能扫描为time.Time
func normalizeDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime=true") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}
