/*
 * @Description: 图片资产数据操作契约
 * @Author: 青陌
 * @Date: 2025-04-14 11:20:08
 * @LastEditTime: 2025-09-22 10:41:36
 * @LastEditors: 青陌
 */
package repository

import (
	"context"

	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
)

// ImageQueryOptions 定义了查询图片列表时的过滤条件。
type ImageQueryOptions struct {
	PageQuery
	OwnerID    *uint
	OnlyPublic bool
	Format     string
}

// ImageRepository 定义了图片资产数据操作的契约。
type ImageRepository interface {
	// Create 持久化一条新的图片记录并回填数据库主键和时间戳。
	Create(ctx context.Context, img *model.Image) error

	// FindByPublicID 按公共 ID 查找图片，不存在时返回 constant.ErrNotFound。
	FindByPublicID(ctx context.Context, publicID string) (*model.Image, error)

	// FindListByOptions 分页查询图片列表。
	FindListByOptions(ctx context.Context, opts ImageQueryOptions) (*PageResult[model.Image], error)

	// Update 更新图片的可编辑元信息（文件名、可见性）。
	Update(ctx context.Context, img *model.Image) error

	// Delete 按数据库主键删除图片记录。
	Delete(ctx context.Context, id uint) error

	// IncrementViewCount 原子地增加查看次数，不触碰 updated_at。
	IncrementViewCount(ctx context.Context, id uint) error

	// IncrementDownloadCount 原子地增加下载次数，不触碰 updated_at。
	IncrementDownloadCount(ctx context.Context, id uint) error

	// SetPrimaryColor 回写异步提取出的主色调。
	SetPrimaryColor(ctx context.Context, id uint, color string) error

	// ListStoragePaths 返回全部记录的存储路径，供孤儿文件清理任务比对。
	ListStoragePaths(ctx context.Context) (map[string]struct{}, error)
}
