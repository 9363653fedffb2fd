package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/qingmo-c/qingtu-app/internal/infra/persistence/database"
	"github.com/qingmo-c/qingtu-app/pkg/constant"
	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// newTestDB 在临时目录创建一个 SQLite 库并完成建表
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_fk=1", dbPath))
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	// SQLite 单写者，串行化连接池避免并发写时报 busy
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.NewMigrationService(db, "sqlite3").RunMigrations(context.Background()); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

func newTestImage(publicID string) *model.Image {
	return &model.Image{
		PublicID:    publicID,
		OwnerID:     1,
		FileName:    "test.png",
		StoragePath: "uploads/2025/05/" + publicID + ".png",
		MimeType:    "image/png",
		Format:      "png",
		FileSize:    1234,
		Width:       640,
		Height:      480,
		IsPublic:    true,
	}
}

func TestImageRepo_CreateAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewImageRepo(db, "sqlite3")
	ctx := context.Background()

	t.Run("创建后可以按公共ID查到", func(t *testing.T) {
		img := newTestImage("aaaaaaaaaaaaaaaaaaaa1")
		if err := repo.Create(ctx, img); err != nil {
			t.Fatalf("Create 返回错误: %v", err)
		}
		if img.ID == 0 {
			t.Fatal("Create 未回填数据库主键")
		}

		got, err := repo.FindByPublicID(ctx, img.PublicID)
		if err != nil {
			t.Fatalf("FindByPublicID 返回错误: %v", err)
		}
		if got.FileName != "test.png" || got.Format != "png" || !got.IsPublic {
			t.Fatalf("查询结果不匹配: %+v", got)
		}
		if got.ViewCount != 0 || got.DownloadCount != 0 {
			t.Fatalf("新记录计数应为 0: view=%d download=%d", got.ViewCount, got.DownloadCount)
		}
	})

	t.Run("不存在的公共ID返回ErrNotFound", func(t *testing.T) {
		_, err := repo.FindByPublicID(ctx, "nope")
		if !errors.Is(err, constant.ErrNotFound) {
			t.Fatalf("期望 ErrNotFound, 得到 %v", err)
		}
	})
}

func TestImageRepo_ConcurrentIncrement(t *testing.T) {
	db := newTestDB(t)
	repo := NewImageRepo(db, "sqlite3")
	ctx := context.Background()

	img := newTestImage("bbbbbbbbbbbbbbbbbbbb2")
	if err := repo.Create(ctx, img); err != nil {
		t.Fatalf("Create 返回错误: %v", err)
	}
	before, err := repo.FindByPublicID(ctx, img.PublicID)
	if err != nil {
		t.Fatalf("FindByPublicID 返回错误: %v", err)
	}

	n := 1000
	if testing.Short() {
		n = 50
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.IncrementViewCount(ctx, img.ID); err != nil {
				t.Errorf("IncrementViewCount 返回错误: %v", err)
			}
		}()
	}
	wg.Wait()

	after, err := repo.FindByPublicID(ctx, img.PublicID)
	if err != nil {
		t.Fatalf("FindByPublicID 返回错误: %v", err)
	}
	if after.ViewCount != int64(n) {
		t.Fatalf("期望计数 %d, 得到 %d", n, after.ViewCount)
	}
	// 计数更新不应触碰 updated_at
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("计数更新改变了 updated_at: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
}

func TestImageRepo_FindListByOptions(t *testing.T) {
	db := newTestDB(t)
	repo := NewImageRepo(db, "sqlite3")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		img := newTestImage(fmt.Sprintf("cccccccccccccccccc%03d", i))
		img.OwnerID = uint(1 + i%2)
		img.IsPublic = i%2 == 0
		if err := repo.Create(ctx, img); err != nil {
			t.Fatalf("Create 返回错误: %v", err)
		}
	}

	t.Run("按拥有者过滤", func(t *testing.T) {
		owner := uint(1)
		result, err := repo.FindListByOptions(ctx, repository.ImageQueryOptions{
			PageQuery: repository.PageQuery{Page: 1, PageSize: 10},
			OwnerID:   &owner,
		})
		if err != nil {
			t.Fatalf("FindListByOptions 返回错误: %v", err)
		}
		if result.Total != 3 {
			t.Fatalf("期望 owner=1 的记录 3 条, 得到 %d", result.Total)
		}
	})

	t.Run("仅公开", func(t *testing.T) {
		result, err := repo.FindListByOptions(ctx, repository.ImageQueryOptions{
			PageQuery:  repository.PageQuery{Page: 1, PageSize: 10},
			OnlyPublic: true,
		})
		if err != nil {
			t.Fatalf("FindListByOptions 返回错误: %v", err)
		}
		if result.Total != 3 {
			t.Fatalf("期望公开记录 3 条, 得到 %d", result.Total)
		}
	})

	t.Run("分页越界返回空页", func(t *testing.T) {
		result, err := repo.FindListByOptions(ctx, repository.ImageQueryOptions{
			PageQuery: repository.PageQuery{Page: 99, PageSize: 10},
		})
		if err != nil {
			t.Fatalf("FindListByOptions 返回错误: %v", err)
		}
		if len(result.Items) != 0 {
			t.Fatalf("期望空页, 得到 %d 条", len(result.Items))
		}
		if result.Total != 5 {
			t.Fatalf("期望总数 5, 得到 %d", result.Total)
		}
	})
}

func TestImageRepo_UpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewImageRepo(db, "sqlite3")
	ctx := context.Background()

	img := newTestImage("dddddddddddddddddddd4")
	if err := repo.Create(ctx, img); err != nil {
		t.Fatalf("Create 返回错误: %v", err)
	}

	t.Run("更新文件名和可见性", func(t *testing.T) {
		img.FileName = "renamed.png"
		img.IsPublic = false
		if err := repo.Update(ctx, img); err != nil {
			t.Fatalf("Update 返回错误: %v", err)
		}

		got, err := repo.FindByPublicID(ctx, img.PublicID)
		if err != nil {
			t.Fatalf("FindByPublicID 返回错误: %v", err)
		}
		if got.FileName != "renamed.png" || got.IsPublic {
			t.Fatalf("更新未生效: %+v", got)
		}
	})

	t.Run("删除后查询返回ErrNotFound", func(t *testing.T) {
		if err := repo.Delete(ctx, img.ID); err != nil {
			t.Fatalf("Delete 返回错误: %v", err)
		}
		_, err := repo.FindByPublicID(ctx, img.PublicID)
		if !errors.Is(err, constant.ErrNotFound) {
			t.Fatalf("期望 ErrNotFound, 得到 %v", err)
		}
	})

	t.Run("删除不存在的主键返回ErrNotFound", func(t *testing.T) {
		if err := repo.Delete(ctx, 99999); !errors.Is(err, constant.ErrNotFound) {
			t.Fatalf("期望 ErrNotFound, 得到 %v", err)
		}
	})
}
