/*
 * @Description: 审计日志仓储的 database/sql 实现
 * @Author: 青陌
 * @Date: 2025-05-13 09:48:26
 * @LastEditTime: 2025-08-19 21:50:13
 * @LastEditors: 青陌
 */
package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
)

type auditLogRepo struct {
	db     *sql.DB
	driver string
}

// NewAuditLogRepo 创建审计日志仓储实例
func NewAuditLogRepo(db *sql.DB, driver string) repository.AuditLogRepository {
	return &auditLogRepo{db: db, driver: driver}
}

func (r *auditLogRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	entry.CreatedAt = time.Now().UTC().Truncate(time.Second)

	query := rebind(r.driver, `
		INSERT INTO audit_logs (event_id, created_at, event, actor_id, target_id, detail, client_ip)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		entry.EventID, entry.CreatedAt, entry.Event, entry.ActorID,
		entry.TargetID, entry.Detail, entry.ClientIP)
	if err != nil {
		return fmt.Errorf("写入审计日志失败: %w", err)
	}
	return nil
}

func (r *auditLogRepo) FindRecent(ctx context.Context, limit int) ([]*model.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := rebind(r.driver, `
		SELECT id, event_id, created_at, event, actor_id, target_id, detail, client_ip
		FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT ?`)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("查询审计日志失败: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditLog
	for rows.Next() {
		var e model.AuditLog
		if err := rows.Scan(&e.ID, &e.EventID, &e.CreatedAt, &e.Event, &e.ActorID,
			&e.TargetID, &e.Detail, &e.ClientIP); err != nil {
			return nil, fmt.Errorf("扫描审计日志失败: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
