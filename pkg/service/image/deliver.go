/*
 * @Description: 图片交付（可选动态变换）
 * @Author: 青陌
 * @Date: 2025-06-10 09:15:33
 * @LastEditTime: 2025-09-27 11:20:46
 * @LastEditors: 青陌
 */
package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"time"

	"github.com/qingmo-c/qingtu-app/pkg/constant"
	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/service/transform"
)

// 交付使用长缓存：内容只会被替换 ID，不会原地变更
const deliverCacheControl = "public, max-age=604800, immutable"

// 变换结果缓存的键前缀和 TTL
const (
	variantCachePrefix  = "img:variant:"
	variantCacheTTL     = time.Hour
	variantCacheMaxSize = 2 << 20 // 超过 2MB 的变换结果不进缓存
)

// DeliverOptions 描述一次交付请求
type DeliverOptions struct {
	Transform   transform.Options
	Download    bool
	IfNoneMatch string
	ViewerID    uint // 0 表示匿名访问
	ViewerAdmin bool
}

// DeliverResult 是交付的产物
type DeliverResult struct {
	NotModified  bool
	Data         []byte
	ContentType  string
	ETag         string
	FileName     string
	CacheControl string
}

// Deliver 按公共 ID 交付图片内容。
// 私有图片对非拥有者一律报告不存在，避免泄露资产存在性。
// 变换失败不会阻断交付，回退为原图。
func (s *Service) Deliver(ctx context.Context, publicID string, opts DeliverOptions) (*DeliverResult, error) {
	img, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	if !img.IsPublic && img.OwnerID != opts.ViewerID && !opts.ViewerAdmin {
		return nil, fmt.Errorf("图片 %s: %w", publicID, constant.ErrNotFound)
	}

	etag := fmt.Sprintf(`"%s-%d"`, img.PublicID, img.UpdatedAt.Unix())

	result := &DeliverResult{
		ETag:         etag,
		FileName:     img.FileName,
		ContentType:  img.MimeType,
		CacheControl: deliverCacheControl,
	}

	data, err := s.readOriginal(ctx, img)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// 记录在库但物理文件缺失，属于完整性异常；对外仍报告不存在
			log.Printf("[ImageService] WARN: 完整性异常：记录 %s 的物理文件缺失 (%s)", img.PublicID, img.StoragePath)
			return nil, fmt.Errorf("图片 %s: %w", publicID, constant.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", constant.ErrStorageFailure, err)
	}

	// 物理文件核验通过才计数；304 也算一次有效访问
	s.bumpCounters(img, opts.Download)

	if opts.IfNoneMatch != "" && opts.IfNoneMatch == etag {
		result.NotModified = true
		return result, nil
	}

	// SVG 是矢量格式，不参与位图变换
	if img.Format == "svg" || opts.Transform.IsNoop() {
		result.Data = data
		return result, nil
	}

	if err := opts.Transform.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", constant.ErrBadRequest, err)
	}

	// 先查变换缓存，避免重复的解码编码开销
	cacheKey := fmt.Sprintf("%s%s:%dx%d:q%d:%d", variantCachePrefix,
		img.PublicID, opts.Transform.Width, opts.Transform.Height, opts.Transform.Quality, img.UpdatedAt.Unix())
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
		result.Data = []byte(cached)
		result.ContentType = transform.OutputContentType(img.Format)
		return result, nil
	}

	transformed, err := s.transformer.Apply(data, img.Format, opts.Transform)
	if err != nil {
		// 变换失败回退原图，只记录告警
		log.Printf("[ImageService] WARN: 变换失败，回退原图 (id=%s): %v", img.PublicID, err)
		result.Data = data
		return result, nil
	}

	if len(transformed.Data) <= variantCacheMaxSize {
		if err := s.cache.Set(ctx, cacheKey, string(transformed.Data), variantCacheTTL); err != nil {
			log.Printf("[ImageService] WARN: 写入变换缓存失败 (key=%s): %v", cacheKey, err)
		}
	}

	result.Data = transformed.Data
	result.ContentType = transformed.ContentType
	return result, nil
}

func (s *Service) readOriginal(ctx context.Context, img *model.Image) ([]byte, error) {
	rc, err := s.driver.Open(ctx, img.StoragePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Service) bumpCounters(img *model.Image, download bool) {
	if download {
		s.counter.BumpDownload(img.ID)
		return
	}
	s.counter.BumpView(img.ID)
}
