/*
 * @Description: 孤儿文件清理任务
 * @Author: 青陌
 * @Date: 2025-06-15 10:02:48
 * @LastEditTime: 2025-09-28 09:51:26
 * @LastEditors: 青陌
 */
package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/qingmo-c/qingtu-app/internal/infra/storage"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
)

// orphanGracePeriod 是文件从落盘到被视为孤儿的宽限期。
// 上传先落盘后入库，宽限期避免清掉正在入库途中的文件。
const orphanGracePeriod = 24 * time.Hour

// OrphanSweepJob 在存储目录和数据库之间做双向对账：
// 删除数据库中没有对应记录的物理文件（来自删除时未能解除链接的记录，
// 或入库失败且补偿删除也失败的上传），并标记物理文件缺失的孤儿记录。
// 孤儿记录只告警不删除，留给运维排查数据丢失的原因。
type OrphanSweepJob struct {
	repo   repository.ImageRepository
	driver storage.Driver
	logger *slog.Logger
}

// NewOrphanSweepJob 创建孤儿清理任务
func NewOrphanSweepJob(repo repository.ImageRepository, driver storage.Driver, logger *slog.Logger) *OrphanSweepJob {
	return &OrphanSweepJob{
		repo:   repo,
		driver: driver,
		logger: logger,
	}
}

// Name 返回任务的可读名称
func (j *OrphanSweepJob) Name() string {
	return "OrphanSweepJob"
}

// Run 实现 cron.Job 接口
func (j *OrphanSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	known, err := j.repo.ListStoragePaths(ctx)
	if err != nil {
		j.logger.Error("读取数据库存储路径失败", slog.Any("error", err))
		return
	}

	var scanned, removed int
	cutoff := time.Now().Add(-orphanGracePeriod)

	err = j.driver.Walk(ctx, func(relPath string, size int64, modTime time.Time) error {
		scanned++
		if _, ok := known[relPath]; ok {
			return nil
		}
		if modTime.After(cutoff) {
			// 还在宽限期内，下次再看
			return nil
		}

		if err := j.driver.Delete(ctx, relPath); err != nil {
			j.logger.Warn("删除孤儿文件失败", slog.String("path", relPath), slog.Any("error", err))
			return nil
		}
		removed++
		j.logger.Info("已删除孤儿文件", slog.String("path", relPath), slog.Int64("size", size))
		return nil
	})
	if err != nil {
		j.logger.Error("扫描存储目录失败", slog.Any("error", err))
		return
	}

	// 反向对账：记录在库但物理文件缺失，属于完整性异常
	var orphanRecords int
	for relPath := range known {
		exists, err := j.driver.Exists(ctx, relPath)
		if err != nil {
			j.logger.Warn("检查物理文件失败", slog.String("path", relPath), slog.Any("error", err))
			continue
		}
		if !exists {
			orphanRecords++
			j.logger.Warn("发现孤儿记录：物理文件缺失", slog.String("path", relPath))
		}
	}

	j.logger.Info("孤儿清理完成",
		slog.Int("scanned", scanned),
		slog.Int("removed", removed),
		slog.Int("orphan_records", orphanRecords))
}
