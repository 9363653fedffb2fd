package utility

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryCacheService(t *testing.T) {
	ctx := context.Background()

	t.Run("基本的Set和Get", func(t *testing.T) {
		svc := newMemoryCacheService(time.Now)
		defer svc.Stop()

		if err := svc.Set(ctx, "k1", "v1", 0); err != nil {
			t.Fatalf("Set 返回错误: %v", err)
		}
		got, err := svc.Get(ctx, "k1")
		if err != nil {
			t.Fatalf("Get 返回错误: %v", err)
		}
		if got != "v1" {
			t.Fatalf("期望 v1, 得到 %q", got)
		}
	})

	t.Run("过期的键读取为空", func(t *testing.T) {
		now := time.Now()
		clock := now
		var mu sync.Mutex
		svc := newMemoryCacheService(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return clock
		})
		defer svc.Stop()

		if err := svc.Set(ctx, "k2", "v2", 10*time.Second); err != nil {
			t.Fatalf("Set 返回错误: %v", err)
		}

		// 时钟拨过过期时间
		mu.Lock()
		clock = now.Add(11 * time.Second)
		mu.Unlock()

		got, err := svc.Get(ctx, "k2")
		if err != nil {
			t.Fatalf("Get 返回错误: %v", err)
		}
		if got != "" {
			t.Fatalf("期望空字符串, 得到 %q", got)
		}
	})

	t.Run("并发Increment结果准确", func(t *testing.T) {
		svc := newMemoryCacheService(time.Now)
		defer svc.Stop()

		const n = 200
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Increment(ctx, "counter"); err != nil {
					t.Errorf("Increment 返回错误: %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := svc.Get(ctx, "counter")
		if err != nil {
			t.Fatalf("Get 返回错误: %v", err)
		}
		if got != "200" {
			t.Fatalf("期望计数 200, 得到 %q", got)
		}
	})

	t.Run("SAdd去重", func(t *testing.T) {
		svc := newMemoryCacheService(time.Now)
		defer svc.Stop()

		added, err := svc.SAdd(ctx, "viewers", "1.1.1.1", "2.2.2.2")
		if err != nil {
			t.Fatalf("SAdd 返回错误: %v", err)
		}
		if added != 2 {
			t.Fatalf("期望新增 2 个成员, 得到 %d", added)
		}

		added, err = svc.SAdd(ctx, "viewers", "1.1.1.1")
		if err != nil {
			t.Fatalf("SAdd 返回错误: %v", err)
		}
		if added != 0 {
			t.Fatalf("重复成员期望新增 0, 得到 %d", added)
		}
	})

	t.Run("Scan支持通配符", func(t *testing.T) {
		svc := newMemoryCacheService(time.Now)
		defer svc.Stop()

		svc.Set(ctx, "image:a", "1", 0)
		svc.Set(ctx, "image:b", "1", 0)
		svc.Set(ctx, "user:a", "1", 0)

		keys, err := svc.Scan(ctx, "image:*")
		if err != nil {
			t.Fatalf("Scan 返回错误: %v", err)
		}
		if len(keys) != 2 {
			t.Fatalf("期望匹配 2 个键, 得到 %d: %v", len(keys), keys)
		}
	})
}
