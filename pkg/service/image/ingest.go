/*
 * @Description: 图片上传入库
 * @Author: 青陌
 * @Date: 2025-06-09 10:22:18
 * @LastEditTime: 2025-09-26 16:40:57
 * @LastEditors: 青陌
 */
package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/qingmo-c/qingtu-app/internal/pkg/event"
	"github.com/qingmo-c/qingtu-app/pkg/constant"
	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/idgen"
)

// Upload 完成一次图片上传：校验、落盘、入库，并发布异步后处理事件。
// profile 决定了本次上传允许的格式和大小上限。
func (s *Service) Upload(ctx context.Context, input *model.UploadInput, profile *model.UploadProfile) (*model.UploadResult, error) {
	// 校验和存储扩展名都基于声明的 Content-Type，文件名只作展示
	ext := ExtForMime(input.MimeType)
	if ext == "" || !profile.Allows(ext) {
		return nil, fmt.Errorf("%w: 不支持的内容类型 '%s'", constant.ErrInvalidType, input.MimeType)
	}

	// 多读一个字节以区分"刚好等于上限"和"超过上限"
	data, err := io.ReadAll(io.LimitReader(input.Reader, profile.MaxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取上传数据失败: %w", err)
	}
	if int64(len(data)) > profile.MaxSizeBytes {
		return nil, fmt.Errorf("%w: 上限 %d 字节", constant.ErrFileTooLarge, profile.MaxSizeBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: 上传内容为空", constant.ErrBadRequest)
	}

	format := FormatOf(ext)

	// SVG 是文本格式，跳过位图解码。尺寸探测失败不阻断入库，
	// 资产只是没有宽高信息。
	var width, height int
	if format != "svg" {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			log.Printf("[ImageService] WARN: 尺寸探测失败 (%s): %v", input.FileName, err)
		} else {
			width, height = cfg.Width, cfg.Height
		}
	}

	// 21 位随机 ID 撞库概率极低，但唯一约束冲突时换一个 ID 重试，
	// 而不是把冲突暴露给调用方。
	var img *model.Image
	for attempt := 0; ; attempt++ {
		publicID, err := idgen.NewImageID()
		if err != nil {
			return nil, fmt.Errorf("生成图片ID失败: %w", err)
		}

		storagePath := StoragePathFor(publicID, ext, time.Now())
		size, err := s.driver.Save(ctx, bytes.NewReader(data), storagePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", constant.ErrStorageFailure, err)
		}

		img = &model.Image{
			PublicID:      publicID,
			OwnerID:       input.OwnerID,
			FileName:      input.FileName,
			StoragePath:   storagePath,
			MimeType:      MimeTypeOf(format),
			Format:        format,
			FileSize:      size,
			Width:         width,
			Height:        height,
			IsPublic:      input.IsPublic,
			GuestUploaded: input.Guest,
			UploaderIP:    input.ClientIP,
		}

		err = s.repo.Create(ctx, img)
		if err == nil {
			break
		}

		// 入库失败时回收已落盘的文件，避免产生孤儿
		if delErr := s.driver.Delete(ctx, storagePath); delErr != nil {
			log.Printf("[ImageService] WARN: 回收孤儿文件失败 (%s): %v", storagePath, delErr)
		}
		if errors.Is(err, constant.ErrDuplicateKey) && attempt < 2 {
			log.Printf("[ImageService] WARN: 图片ID %s 冲突，重新生成后重试", publicID)
			continue
		}
		return nil, err
	}

	s.bus.Publish(event.ImageCreated, event.ImageCreatedPayload{
		ImageID:     img.ID,
		PublicID:    img.PublicID,
		StoragePath: img.StoragePath,
		Format:      img.Format,
	})

	auditEvent := model.AuditImageUploaded
	if input.Guest {
		auditEvent = model.AuditGuestUpload
	}
	s.bus.Publish(event.AuditRecorded, &model.AuditLog{
		EventID:  uuid.NewString(),
		Event:    auditEvent,
		ActorID:  input.OwnerID,
		TargetID: img.PublicID,
		Detail:   fmt.Sprintf("%s (%d 字节)", input.FileName, img.FileSize),
		ClientIP: input.ClientIP,
	})

	return &model.UploadResult{
		PublicID: img.PublicID,
		URL:      "/api/image/" + img.PublicID,
		FileName: img.FileName,
		MimeType: img.MimeType,
		FileSize: img.FileSize,
		Width:    img.Width,
		Height:   img.Height,
	}, nil
}
