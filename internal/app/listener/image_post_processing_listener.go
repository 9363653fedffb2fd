/*
 * @Description: 图片上传后处理监听器（主色调提取）
 * @Author: 青陌
 * @Date: 2025-06-13 09:42:18
 * @LastEditTime: 2025-09-27 17:35:40
 * @LastEditors: 青陌
 */
package listener

import (
	"context"
	"log"
	"time"

	"github.com/qingmo-c/qingtu-app/internal/infra/storage"
	"github.com/qingmo-c/qingtu-app/internal/pkg/event"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
	"github.com/qingmo-c/qingtu-app/pkg/service/utility"
)

// ImagePostProcessingListener 在图片入库后异步提取主色调并回写。
// 失败不影响主流程，图片只是没有主色调信息。
type ImagePostProcessingListener struct {
	repo     repository.ImageRepository
	driver   storage.Driver
	colorSvc *utility.ColorService
}

// NewImagePostProcessingListener 创建后处理监听器
func NewImagePostProcessingListener(
	repo repository.ImageRepository,
	driver storage.Driver,
	colorSvc *utility.ColorService,
) *ImagePostProcessingListener {
	return &ImagePostProcessingListener{
		repo:     repo,
		driver:   driver,
		colorSvc: colorSvc,
	}
}

// Register 在事件总线上订阅感兴趣的事件
func (l *ImagePostProcessingListener) Register(bus *event.EventBus) {
	bus.Subscribe(event.ImageCreated, l.onImageCreated)
}

func (l *ImagePostProcessingListener) onImageCreated(payload interface{}) {
	p, ok := payload.(event.ImageCreatedPayload)
	if !ok {
		log.Printf("[PostProcessing] WARN: 收到未知类型的载荷: %T", payload)
		return
	}

	// SVG 无法做位图聚类，直接跳过
	if p.Format == "svg" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rc, err := l.driver.Open(ctx, p.StoragePath)
	if err != nil {
		log.Printf("[PostProcessing] WARN: 打开文件失败 (id=%s): %v", p.PublicID, err)
		return
	}
	defer rc.Close()

	color, err := l.colorSvc.GetPrimaryColor(rc)
	if err != nil {
		log.Printf("[PostProcessing] WARN: 提取主色调失败 (id=%s): %v", p.PublicID, err)
		return
	}

	if err := l.repo.SetPrimaryColor(ctx, p.ImageID, color); err != nil {
		log.Printf("[PostProcessing] WARN: 回写主色调失败 (id=%s): %v", p.PublicID, err)
		return
	}
	log.Printf("[PostProcessing] 图片 %s 主色调: %s", p.PublicID, color)
}
