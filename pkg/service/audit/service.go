/*
 * @Description: 审计服务（订阅事件并落库）
 * @Author: 青陌
 * @Date: 2025-06-12 15:08:27
 * @LastEditTime: 2025-08-19 22:04:11
 * @LastEditors: 青陌
 */
package audit

import (
	"context"
	"log"
	"time"

	"github.com/qingmo-c/qingtu-app/internal/pkg/event"
	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
)

// Service 把事件总线上的审计事件持久化到数据库，并提供查询。
type Service struct {
	repo repository.AuditLogRepository
}

// NewService 创建审计服务并订阅审计事件
func NewService(repo repository.AuditLogRepository, bus *event.EventBus) *Service {
	s := &Service{repo: repo}
	bus.Subscribe(event.AuditRecorded, s.handleRecorded)
	return s
}

// handleRecorded 在总线 worker 内执行，落库失败只记录告警
func (s *Service) handleRecorded(payload interface{}) {
	entry, ok := payload.(*model.AuditLog)
	if !ok {
		log.Printf("[AuditService] WARN: 收到未知类型的审计载荷: %T", payload)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.Create(ctx, entry); err != nil {
		log.Printf("[AuditService] WARN: 审计记录落库失败 (event=%s): %v", entry.Event, err)
	}
}

// Recent 返回最近的审计记录
func (s *Service) Recent(ctx context.Context, limit int) ([]*model.AuditLog, error) {
	return s.repo.FindRecent(ctx, limit)
}
