/*
 * @Description: 图片业务服务（装配与公共依赖）
 * @Author: 青陌
 * @Date: 2025-06-08 11:26:30
 * @LastEditTime: 2025-09-26 14:55:02
 * @LastEditors: 青陌
 */
package image

import (
	"github.com/qingmo-c/qingtu-app/internal/infra/storage"
	"github.com/qingmo-c/qingtu-app/internal/pkg/event"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
	"github.com/qingmo-c/qingtu-app/pkg/service/transform"
	"github.com/qingmo-c/qingtu-app/pkg/service/utility"
)

// Service 是图片资产的核心业务服务，覆盖上传、交付、查询和删除。
// 审计和主色调提取通过事件总线异步完成，主流程不等待。
type Service struct {
	repo        repository.ImageRepository
	driver      storage.Driver
	transformer *transform.Service
	cache       utility.CacheService
	bus         *event.EventBus
	counter     *counterUpdater
}

// NewService 创建图片业务服务
func NewService(
	repo repository.ImageRepository,
	driver storage.Driver,
	transformer *transform.Service,
	cache utility.CacheService,
	bus *event.EventBus,
) *Service {
	return &Service{
		repo:        repo,
		driver:      driver,
		transformer: transformer,
		cache:       cache,
		bus:         bus,
		counter:     newCounterUpdater(repo),
	}
}

// FlushCounters 等待所有后台计数写入完成，主要供测试和优雅停机使用。
func (s *Service) FlushCounters() {
	s.counter.Flush()
}
