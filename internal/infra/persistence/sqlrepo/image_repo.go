/*
 * @Description: 图片资产仓储的 database/sql 实现
 * @Author: 青陌
 * @Date: 2025-05-12 15:22:41
 * @LastEditTime: 2025-09-24 11:37:29
 * @LastEditors: 青陌
 */
package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/qingmo-c/qingtu-app/pkg/constant"
	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
)

type imageRepo struct {
	db     *sql.DB
	driver string
}

// NewImageRepo 创建图片仓储实例
func NewImageRepo(db *sql.DB, driver string) repository.ImageRepository {
	return &imageRepo{db: db, driver: driver}
}

const imageColumns = `id, public_id, created_at, updated_at, owner_id, file_name, storage_path,
	mime_type, format, file_size, width, height, primary_color, is_public,
	view_count, download_count, guest_uploaded, uploader_ip`

// scanImage 从一行记录中扫描出领域模型
func scanImage(row interface{ Scan(...interface{}) error }) (*model.Image, error) {
	var img model.Image
	var isPublic, guestUploaded int
	err := row.Scan(
		&img.ID, &img.PublicID, &img.CreatedAt, &img.UpdatedAt, &img.OwnerID,
		&img.FileName, &img.StoragePath, &img.MimeType, &img.Format, &img.FileSize,
		&img.Width, &img.Height, &img.PrimaryColor, &isPublic,
		&img.ViewCount, &img.DownloadCount, &guestUploaded, &img.UploaderIP,
	)
	if err != nil {
		return nil, err
	}
	img.IsPublic = isPublic == 1
	img.GuestUploaded = guestUploaded == 1
	return &img, nil
}

func (r *imageRepo) Create(ctx context.Context, img *model.Image) error {
	now := time.Now().UTC().Truncate(time.Second)
	img.CreatedAt = now
	img.UpdatedAt = now

	query := rebind(r.driver, `
		INSERT INTO images (public_id, created_at, updated_at, owner_id, file_name, storage_path,
			mime_type, format, file_size, width, height, primary_color, is_public,
			view_count, download_count, guest_uploaded, uploader_ip)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`)

	args := []interface{}{
		img.PublicID, img.CreatedAt, img.UpdatedAt, img.OwnerID, img.FileName, img.StoragePath,
		img.MimeType, img.Format, img.FileSize, img.Width, img.Height, img.PrimaryColor,
		boolToInt(img.IsPublic), boolToInt(img.GuestUploaded), img.UploaderIP,
	}

	// postgres 不支持 LastInsertId，需要 RETURNING
	if r.driver == "postgres" {
		query += " RETURNING id"
		var id uint
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			if isDuplicateErr(err) {
				return fmt.Errorf("公开ID %s: %w", img.PublicID, constant.ErrDuplicateKey)
			}
			return fmt.Errorf("插入图片记录失败: %w", err)
		}
		img.ID = id
		return nil
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isDuplicateErr(err) {
			return fmt.Errorf("公开ID %s: %w", img.PublicID, constant.ErrDuplicateKey)
		}
		return fmt.Errorf("插入图片记录失败: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("获取自增主键失败: %w", err)
	}
	img.ID = uint(id)
	return nil
}

func (r *imageRepo) FindByPublicID(ctx context.Context, publicID string) (*model.Image, error) {
	query := rebind(r.driver, "SELECT "+imageColumns+" FROM images WHERE public_id = ?")
	img, err := scanImage(r.db.QueryRowContext(ctx, query, publicID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("图片 %s: %w", publicID, constant.ErrNotFound)
		}
		return nil, fmt.Errorf("查询图片失败: %w", err)
	}
	return img, nil
}

func (r *imageRepo) FindListByOptions(ctx context.Context, opts repository.ImageQueryOptions) (*repository.PageResult[model.Image], error) {
	opts.Normalize()

	where := " WHERE 1=1"
	var args []interface{}
	if opts.OwnerID != nil {
		where += " AND owner_id = ?"
		args = append(args, *opts.OwnerID)
	}
	if opts.OnlyPublic {
		where += " AND is_public = 1"
	}
	if opts.Format != "" {
		where += " AND format = ?"
		args = append(args, opts.Format)
	}

	var total int64
	countQuery := rebind(r.driver, "SELECT COUNT(*) FROM images"+where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("统计图片总数失败: %w", err)
	}

	listQuery := rebind(r.driver,
		"SELECT "+imageColumns+" FROM images"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")
	listArgs := append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)

	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("查询图片列表失败: %w", err)
	}
	defer rows.Close()

	result := &repository.PageResult[model.Image]{Total: total, Items: []*model.Image{}}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描图片记录失败: %w", err)
		}
		result.Items = append(result.Items, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历图片列表失败: %w", err)
	}
	return result, nil
}

func (r *imageRepo) Update(ctx context.Context, img *model.Image) error {
	img.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	query := rebind(r.driver, `
		UPDATE images SET updated_at = ?, file_name = ?, is_public = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, img.UpdatedAt, img.FileName, boolToInt(img.IsPublic), img.ID)
	if err != nil {
		return fmt.Errorf("更新图片记录失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return constant.ErrNotFound
	}
	return nil
}

func (r *imageRepo) Delete(ctx context.Context, id uint) error {
	query := rebind(r.driver, "DELETE FROM images WHERE id = ?")
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("删除图片记录失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return constant.ErrNotFound
	}
	return nil
}

// IncrementViewCount 用 SQL 自增保证并发安全，且刻意不更新 updated_at，
// 避免计数抖动破坏基于更新时间的 ETag。
func (r *imageRepo) IncrementViewCount(ctx context.Context, id uint) error {
	query := rebind(r.driver, "UPDATE images SET view_count = view_count + 1 WHERE id = ?")
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// IncrementDownloadCount 同 IncrementViewCount，不触碰 updated_at。
func (r *imageRepo) IncrementDownloadCount(ctx context.Context, id uint) error {
	query := rebind(r.driver, "UPDATE images SET download_count = download_count + 1 WHERE id = ?")
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *imageRepo) SetPrimaryColor(ctx context.Context, id uint, color string) error {
	query := rebind(r.driver, "UPDATE images SET primary_color = ? WHERE id = ?")
	_, err := r.db.ExecContext(ctx, query, color, id)
	return err
}

func (r *imageRepo) ListStoragePaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT storage_path FROM images")
	if err != nil {
		return nil, fmt.Errorf("查询存储路径失败: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("扫描存储路径失败: %w", err)
		}
		paths[p] = struct{}{}
	}
	return paths, rows.Err()
}
