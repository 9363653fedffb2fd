/*
 * @Description: 审计日志数据操作契约
 * @Author: 青陌
 * @Date: 2025-05-02 16:50:21
 * @LastEditTime: 2025-08-19 21:34:48
 * @LastEditors: 青陌
 */
package repository

import (
	"context"

	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
)

// AuditLogRepository 定义了审计日志的数据操作契约。
type AuditLogRepository interface {
	// Create 追加一条审计记录。
	Create(ctx context.Context, entry *model.AuditLog) error

	// FindRecent 返回最近的 N 条审计记录，按时间倒序。
	FindRecent(ctx context.Context, limit int) ([]*model.AuditLog, error)
}
