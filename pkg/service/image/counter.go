/*
 * @Description: 异步计数器更新
 * @Author: 青陌
 * @Date: 2025-06-09 09:31:52
 * @LastEditTime: 2025-09-26 15:10:33
 * @LastEditors: 青陌
 */
package image

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
)

// counterUpdater 把查看/下载计数写入放到后台执行，交付路径不等待数据库。
// 计数走 SQL 自增，在数据库侧保证并发安全。
type counterUpdater struct {
	repo repository.ImageRepository
	wg   sync.WaitGroup
}

func newCounterUpdater(repo repository.ImageRepository) *counterUpdater {
	return &counterUpdater{repo: repo}
}

// BumpView 异步增加查看次数
func (c *counterUpdater) BumpView(id uint) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.repo.IncrementViewCount(ctx, id); err != nil {
			log.Printf("[Counter] WARN: 更新查看计数失败 (id=%d): %v", id, err)
		}
	}()
}

// BumpDownload 异步增加下载次数
func (c *counterUpdater) BumpDownload(id uint) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.repo.IncrementDownloadCount(ctx, id); err != nil {
			log.Printf("[Counter] WARN: 更新下载计数失败 (id=%d): %v", id, err)
		}
	}()
}

// Flush 等待所有在途的计数写入完成
func (c *counterUpdater) Flush() {
	c.wg.Wait()
}
