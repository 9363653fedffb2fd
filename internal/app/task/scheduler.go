/*
 * @Description:
 * @Author: 青陌
 * @Date: 2025-06-15 11:10:12
 * @LastEditTime: 2025-09-28 10:05:33
 * @LastEditors: 青陌
 */
package task

import (
	"log/slog"
	"os"

	"github.com/qingmo-c/qingtu-app/internal/infra/storage"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"

	"github.com/robfig/cron/v3"
)

// Scheduler 封装了 cron 实例和其依赖。
// 它是整个定时任务模块的核心协调者，负责任务的注册、启动和停止。
type Scheduler struct {
	cron      *cron.Cron
	logger    *slog.Logger
	imageRepo repository.ImageRepository
	driver    storage.Driver
}

// NewScheduler 是 Scheduler 的构造函数。
func NewScheduler(imageRepo repository.ImageRepository, driver storage.Driver) *Scheduler {
	slogHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(slogHandler).With("system", "cron")

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			NewPanicRecoveryWrapper(logger),
			NewLoggingWrapper(logger),
			cron.DelayIfStillRunning(cron.DefaultLogger),
		),
	)

	return &Scheduler{
		cron:      c,
		logger:    logger,
		imageRepo: imageRepo,
		driver:    driver,
	}
}

// RegisterJobs 在调度器中注册所有定义好的定时任务。
func (s *Scheduler) RegisterJobs() {
	s.logger.Info("Registering all periodic jobs...")

	// --- 任务: 清理没有数据库记录的孤儿文件 ---
	sweepJob := NewOrphanSweepJob(s.imageRepo, s.driver, s.logger)

	_, err := s.cron.AddJob("0 0 4 * * *", sweepJob)
	if err != nil {
		s.logger.Error("Failed to add 'OrphanSweepJob'", slog.Any("error", err))
		os.Exit(1)
	}
	s.logger.Info("-> Successfully registered 'OrphanSweepJob'", "schedule", "every day at 4:00:00 AM")

	s.logger.Info("All periodic jobs registered.")
}

// Start 启动 cron 调度器。
func (s *Scheduler) Start() {
	s.logger.Info("Cron scheduler started.")
	s.cron.Start()
}

// Stop 优雅地停止 cron 调度器。
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron scheduler gracefully stopped.")
}
