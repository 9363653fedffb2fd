/*
 * @Description: 图片元信息操作（查询、更新、删除）
 * @Author: 青陌
 * @Date: 2025-06-10 14:48:22
 * @LastEditTime: 2025-09-27 14:32:18
 * @LastEditors: 青陌
 */
package image

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/qingmo-c/qingtu-app/internal/pkg/event"
	"github.com/qingmo-c/qingtu-app/pkg/constant"
	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
)

// Info 返回图片元信息。私有图片对非拥有者报告不存在。
func (s *Service) Info(ctx context.Context, publicID string, viewerID uint, viewerAdmin bool) (*model.Image, error) {
	img, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !img.IsPublic && img.OwnerID != viewerID && !viewerAdmin {
		return nil, fmt.Errorf("图片 %s: %w", publicID, constant.ErrNotFound)
	}
	return img, nil
}

// List 分页查询图片列表
func (s *Service) List(ctx context.Context, opts repository.ImageQueryOptions) (*repository.PageResult[model.Image], error) {
	return s.repo.FindListByOptions(ctx, opts)
}

// UpdateMeta 更新图片的文件名和可见性。只有拥有者和管理员可以操作。
func (s *Service) UpdateMeta(ctx context.Context, publicID string, req *model.UpdateImageRequest, actorID uint, actorAdmin bool, clientIP string) (*model.Image, error) {
	img, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if img.OwnerID != actorID && !actorAdmin {
		return nil, fmt.Errorf("图片 %s: %w", publicID, constant.ErrForbidden)
	}

	if req.FileName != nil && *req.FileName != "" {
		img.FileName = *req.FileName
	}
	if req.IsPublic != nil {
		img.IsPublic = *req.IsPublic
	}

	if err := s.repo.Update(ctx, img); err != nil {
		return nil, err
	}

	s.invalidateVariants(ctx, img.PublicID)

	s.bus.Publish(event.AuditRecorded, &model.AuditLog{
		EventID:  uuid.NewString(),
		Event:    model.AuditImageUpdated,
		ActorID:  actorID,
		TargetID: img.PublicID,
		Detail:   fmt.Sprintf("fileName=%s isPublic=%v", img.FileName, img.IsPublic),
		ClientIP: clientIP,
	})

	return img, nil
}

// Remove 删除图片：先删数据库记录，再删物理文件。
// 物理文件删除失败只记录告警，留给孤儿清理任务兜底。
func (s *Service) Remove(ctx context.Context, publicID string, actorID uint, actorAdmin bool, clientIP string) error {
	img, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if img.OwnerID != actorID && !actorAdmin {
		return fmt.Errorf("图片 %s: %w", publicID, constant.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, img.ID); err != nil {
		return err
	}

	if err := s.driver.Delete(ctx, img.StoragePath); err != nil {
		log.Printf("[ImageService] WARN: 物理文件删除失败 (%s)，等待清理任务回收: %v", img.StoragePath, err)
	}

	s.invalidateVariants(ctx, img.PublicID)

	s.bus.Publish(event.ImageDeleted, event.ImageDeletedPayload{
		ImageID:     img.ID,
		PublicID:    img.PublicID,
		StoragePath: img.StoragePath,
	})
	s.bus.Publish(event.AuditRecorded, &model.AuditLog{
		EventID:  uuid.NewString(),
		Event:    model.AuditImageDeleted,
		ActorID:  actorID,
		TargetID: img.PublicID,
		Detail:   img.FileName,
		ClientIP: clientIP,
	})

	return nil
}

// invalidateVariants 清理该图片的全部变换缓存
func (s *Service) invalidateVariants(ctx context.Context, publicID string) {
	keys, err := s.cache.Scan(ctx, variantCachePrefix+publicID+":*")
	if err != nil {
		log.Printf("[ImageService] WARN: 扫描变换缓存失败 (id=%s): %v", publicID, err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Printf("[ImageService] WARN: 清理变换缓存失败 (id=%s): %v", publicID, err)
	}
}
