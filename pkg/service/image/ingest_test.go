package image

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/qingmo-c/qingtu-app/internal/infra/persistence/database"
	"github.com/qingmo-c/qingtu-app/internal/infra/persistence/sqlrepo"
	"github.com/qingmo-c/qingtu-app/internal/infra/storage"
	"github.com/qingmo-c/qingtu-app/internal/pkg/event"
	"github.com/qingmo-c/qingtu-app/pkg/constant"
	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
	"github.com/qingmo-c/qingtu-app/pkg/service/transform"
	"github.com/qingmo-c/qingtu-app/pkg/service/utility"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// newTestService 组装一个以 SQLite 和临时目录为后端的完整服务
func newTestService(t *testing.T) (*Service, repository.ImageRepository, *storage.LocalDriver) {
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

	driver, err := storage.NewLocalDriver(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("创建存储驱动失败: %v", err)
	}

	repo := sqlrepo.NewImageRepo(db, "sqlite3")
	bus := event.NewEventBus()
	t.Cleanup(bus.Shutdown)

	svc := NewService(repo, driver, transform.NewService(), utility.NewMemoryCacheService(), bus)
	return svc, repo, driver
}

// failCreateRepo 只会在 Create 时失败，用于验证补偿清理
type failCreateRepo struct {
	repository.ImageRepository
}

func (f *failCreateRepo) Create(ctx context.Context, img *model.Image) error {
	return errors.New("模拟的数据库写入失败")
}

// testPNG 生成一张指定尺寸的 PNG
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("生成测试图失败: %v", err)
	}
	return buf.Bytes()
}

func TestServiceUpload(t *testing.T) {
	ctx := context.Background()
	profile := model.NewAuthenticatedProfile(10 << 20)

	t.Run("正常上传", func(t *testing.T) {
		svc, repo, driver := newTestService(t)

		data := testPNG(t, 320, 240)
		result, err := svc.Upload(ctx, &model.UploadInput{
			FileName: "photo.png",
			MimeType: "image/png",
			Reader:   bytes.NewReader(data),
			OwnerID:  1,
			IsPublic: true,
			ClientIP: "127.0.0.1",
		}, profile)
		if err != nil {
			t.Fatalf("Upload 返回错误: %v", err)
		}

		if len(result.PublicID) != 21 {
			t.Fatalf("公共ID长度期望 21, 得到 %d (%q)", len(result.PublicID), result.PublicID)
		}
		if result.URL != "/api/image/"+result.PublicID {
			t.Fatalf("URL 不匹配: %q", result.URL)
		}
		if result.Width != 320 || result.Height != 240 {
			t.Fatalf("尺寸期望 320x240, 得到 %dx%d", result.Width, result.Height)
		}
		if result.FileSize != int64(len(data)) {
			t.Fatalf("大小期望 %d, 得到 %d", len(data), result.FileSize)
		}

		// 数据库记录和物理文件都应存在
		img, err := repo.FindByPublicID(ctx, result.PublicID)
		if err != nil {
			t.Fatalf("查询上传记录失败: %v", err)
		}
		exists, err := driver.Exists(ctx, img.StoragePath)
		if err != nil || !exists {
			t.Fatalf("物理文件不存在 (%s): %v", img.StoragePath, err)
		}
	})

	t.Run("超过大小上限", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		small := model.NewAuthenticatedProfile(100)
		_, err := svc.Upload(ctx, &model.UploadInput{
			FileName: "big.png",
			MimeType: "image/png",
			Reader:   bytes.NewReader(testPNG(t, 100, 100)),
			OwnerID:  1,
		}, small)
		if !errors.Is(err, constant.ErrFileTooLarge) {
			t.Fatalf("期望 ErrFileTooLarge, 得到 %v", err)
		}
	})

	t.Run("访客通道拒绝gif", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		guest := model.NewGuestProfile(5 << 20)
		_, err := svc.Upload(ctx, &model.UploadInput{
			FileName: "anim.gif",
			MimeType: "image/gif",
			Reader:   bytes.NewReader([]byte("GIF89a")),
			OwnerID:  2,
			Guest:    true,
		}, guest)
		if !errors.Is(err, constant.ErrInvalidType) {
			t.Fatalf("期望 ErrInvalidType, 得到 %v", err)
		}
	})

	t.Run("尺寸探测失败不阻断入库", func(t *testing.T) {
		svc, repo, _ := newTestService(t)

		result, err := svc.Upload(ctx, &model.UploadInput{
			FileName: "odd.png",
			MimeType: "image/png",
			Reader:   bytes.NewReader([]byte("this is not a png")),
			OwnerID:  1,
		}, profile)
		if err != nil {
			t.Fatalf("探测失败不应阻断上传: %v", err)
		}
		if result.Width != 0 || result.Height != 0 {
			t.Fatalf("探测失败时尺寸应缺失, 得到 %dx%d", result.Width, result.Height)
		}
		img, err := repo.FindByPublicID(ctx, result.PublicID)
		if err != nil {
			t.Fatalf("查询上传记录失败: %v", err)
		}
		if img.Width != 0 || img.Height != 0 {
			t.Fatalf("入库记录的尺寸应缺失, 得到 %dx%d", img.Width, img.Height)
		}
	})

	t.Run("存储扩展名来自声明类型而非文件名", func(t *testing.T) {
		svc, repo, _ := newTestService(t)

		result, err := svc.Upload(ctx, &model.UploadInput{
			FileName: "evil.exe",
			MimeType: "image/png",
			Reader:   bytes.NewReader(testPNG(t, 10, 10)),
			OwnerID:  1,
		}, profile)
		if err != nil {
			t.Fatalf("Upload 返回错误: %v", err)
		}
		img, err := repo.FindByPublicID(ctx, result.PublicID)
		if err != nil {
			t.Fatalf("查询上传记录失败: %v", err)
		}
		if !strings.HasSuffix(img.StoragePath, ".png") {
			t.Fatalf("扩展名应由声明类型决定, 得到存储路径 %q", img.StoragePath)
		}
		if strings.Contains(img.StoragePath, "exe") {
			t.Fatalf("存储路径不应携带文件名成分: %q", img.StoragePath)
		}
	})

	t.Run("未声明或未知内容类型被拒绝", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		for _, mime := range []string{"", "application/octet-stream", "text/html"} {
			_, err := svc.Upload(ctx, &model.UploadInput{
				FileName: "photo.png",
				MimeType: mime,
				Reader:   bytes.NewReader(testPNG(t, 10, 10)),
				OwnerID:  1,
			}, profile)
			if !errors.Is(err, constant.ErrInvalidType) {
				t.Fatalf("类型 %q 期望 ErrInvalidType, 得到 %v", mime, err)
			}
		}
	})

	t.Run("相同内容重复上传得到不同资产", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		data := testPNG(t, 20, 20)
		first, err := svc.Upload(ctx, &model.UploadInput{
			FileName: "dup.png", MimeType: "image/png", Reader: bytes.NewReader(data), OwnerID: 1,
		}, profile)
		if err != nil {
			t.Fatalf("第一次上传失败: %v", err)
		}
		second, err := svc.Upload(ctx, &model.UploadInput{
			FileName: "dup.png", MimeType: "image/png", Reader: bytes.NewReader(data), OwnerID: 1,
		}, profile)
		if err != nil {
			t.Fatalf("第二次上传失败: %v", err)
		}
		if first.PublicID == second.PublicID {
			t.Fatalf("重复内容不应去重, 两次得到相同ID %q", first.PublicID)
		}
	})

	t.Run("入库失败时不留下物理文件", func(t *testing.T) {
		svc, _, driver := newTestService(t)
		svc.repo = &failCreateRepo{}

		_, err := svc.Upload(ctx, &model.UploadInput{
			FileName: "doomed.png",
			MimeType: "image/png",
			Reader:   bytes.NewReader(testPNG(t, 10, 10)),
			OwnerID:  1,
		}, profile)
		if err == nil {
			t.Fatal("期望入库失败的错误")
		}

		var leftovers []string
		err = driver.Walk(ctx, func(relPath string, _ int64, _ time.Time) error {
			leftovers = append(leftovers, relPath)
			return nil
		})
		if err != nil {
			t.Fatalf("遍历存储目录失败: %v", err)
		}
		if len(leftovers) != 0 {
			t.Fatalf("入库失败后存储目录应为空, 发现 %v", leftovers)
		}
	})

	t.Run("空内容被拒绝", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.Upload(ctx, &model.UploadInput{
			FileName: "empty.png",
			MimeType: "image/png",
			Reader:   bytes.NewReader(nil),
			OwnerID:  1,
		}, profile)
		if !errors.Is(err, constant.ErrBadRequest) {
			t.Fatalf("期望 ErrBadRequest, 得到 %v", err)
		}
	})
}
