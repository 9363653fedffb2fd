/*
 * @Description: 应用装配与生命周期管理
 * @Author: 青陌
 * @Date: 2025-06-19 15:02:47
 * @LastEditTime: 2025-10-09 21:36:18
 * @LastEditors: 青陌
 */
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/qingmo-c/qingtu-app/internal/app/bootstrap"
	"github.com/qingmo-c/qingtu-app/internal/app/listener"
	"github.com/qingmo-c/qingtu-app/internal/app/middleware"
	"github.com/qingmo-c/qingtu-app/internal/app/task"
	"github.com/qingmo-c/qingtu-app/internal/infra/persistence/database"
	"github.com/qingmo-c/qingtu-app/internal/infra/persistence/sqlrepo"
	"github.com/qingmo-c/qingtu-app/internal/infra/router"
	"github.com/qingmo-c/qingtu-app/internal/infra/storage"
	"github.com/qingmo-c/qingtu-app/internal/pkg/event"
	"github.com/qingmo-c/qingtu-app/pkg/config"
	adminhandler "github.com/qingmo-c/qingtu-app/pkg/handler/admin"
	imagehandler "github.com/qingmo-c/qingtu-app/pkg/handler/image"
	userhandler "github.com/qingmo-c/qingtu-app/pkg/handler/user"
	"github.com/qingmo-c/qingtu-app/pkg/idgen"
	auditservice "github.com/qingmo-c/qingtu-app/pkg/service/audit"
	authservice "github.com/qingmo-c/qingtu-app/pkg/service/auth"
	imageservice "github.com/qingmo-c/qingtu-app/pkg/service/image"
	"github.com/qingmo-c/qingtu-app/pkg/service/transform"
	"github.com/qingmo-c/qingtu-app/pkg/service/utility"
)

// App 结构体，用于封装应用的所有核心组件
type App struct {
	cfg         *config.Config
	engine      *gin.Engine
	sqlDB       *sql.DB
	redisClient *redis.Client
	eventBus    *event.EventBus
	scheduler   *task.Scheduler
	imageSvc    *imageservice.Service
	cacheSvc    utility.CacheService
}

func (a *App) PrintBanner() {
	banner := `

      ██████╗ ██╗███╗   ██╗ ██████╗ ████████╗██╗   ██╗
     ██╔═══██╗██║████╗  ██║██╔════╝ ╚══██╔══╝██║   ██║
     ██║   ██║██║██╔██╗ ██║██║  ███╗   ██║   ██║   ██║
     ██║▄▄ ██║██║██║╚██╗██║██║   ██║   ██║   ██║   ██║
     ╚██████╔╝██║██║ ╚████║╚██████╔╝   ██║   ╚██████╔╝
      ╚══▀▀═╝ ╚═╝╚═╝  ╚═══╝ ╚═════╝    ╚═╝    ╚═════╝

`
	log.Println(banner)
	log.Println("--------------------------------------------------------")
	log.Println(" QingTu App - 轻量级图床服务")
	log.Println("--------------------------------------------------------")
}

// NewApp 是应用的构造函数，它执行所有的初始化和依赖注入工作
func NewApp() (*App, func(), error) {
	// --- Phase 1: 加载外部配置 ---
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	// --- Phase 2: 初始化基础设施 ---
	sqlDB, driverName, err := database.NewSQLDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("创建数据库连接池失败: %w", err)
	}

	// 尝试连接 Redis（如果失败，将自动降级到内存缓存）
	redisClient, err := database.NewRedisClient(context.Background(), cfg)
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("redis 初始化失败: %w", err)
	}

	cleanup := func() {
		log.Println("执行清理操作：关闭数据库连接...")
		sqlDB.Close()
		if redisClient != nil {
			log.Println("关闭 Redis 连接...")
			redisClient.Close()
		}
	}

	// 建表与索引，重复执行是幂等的
	migrator := database.NewMigrationService(sqlDB, driverName)
	if err := migrator.RunMigrations(context.Background()); err != nil {
		return nil, cleanup, fmt.Errorf("数据库迁移失败: %w", err)
	}
	log.Println("✅ 数据库迁移完成")

	// --- Phase 2.5: 初始化 ID 编码器 ---
	if err := idgen.InitSqidsEncoder(); err != nil {
		return nil, cleanup, fmt.Errorf("初始化 ID 编码器失败: %w", err)
	}
	log.Println("✅ ID 编码器初始化成功")

	// 本地存储驱动
	uploadRoot := cfg.GetString(config.KeyUploadRoot)
	if uploadRoot == "" {
		uploadRoot = "data/uploads"
	}
	localDriver, err := storage.NewLocalDriver(uploadRoot)
	if err != nil {
		return nil, cleanup, fmt.Errorf("初始化本地存储驱动失败: %w", err)
	}

	// --- Phase 3: 初始化数据仓库层 ---
	imageRepo := sqlrepo.NewImageRepo(sqlDB, driverName)
	userRepo := sqlrepo.NewUserRepo(sqlDB, driverName)
	auditLogRepo := sqlrepo.NewAuditLogRepo(sqlDB, driverName)

	// --- Phase 4: 初始化业务逻辑层 ---
	eventBus := event.NewEventBus()

	// 使用智能缓存工厂，自动选择 Redis 或内存缓存
	cacheSvc := utility.NewCacheServiceWithFallback(redisClient)

	// 审计服务订阅总线，所有审计事件异步落库
	auditSvc := auditservice.NewService(auditLogRepo, eventBus)

	// 入库后异步提取主色调
	colorSvc := utility.NewColorService()
	postListener := listener.NewImagePostProcessingListener(imageRepo, localDriver, colorSvc)
	postListener.Register(eventBus)

	transformSvc := transform.NewService()
	imageSvc := imageservice.NewService(imageRepo, localDriver, transformSvc, cacheSvc, eventBus)

	jwtSecret, err := resolveJWTSecret(cfg)
	if err != nil {
		return nil, cleanup, err
	}
	tokenSvc := authservice.NewTokenService(userRepo, eventBus, jwtSecret)

	// --- Phase 5: 初始化内置账户 ---
	guestUser, err := bootstrap.EnsureBuiltinAccounts(context.Background(), userRepo, cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("初始化内置账户失败: %w", err)
	}

	// --- Phase 6: 初始化定时任务调度器 ---
	scheduler := task.NewScheduler(imageRepo, localDriver)

	// --- Phase 7: 初始化表现层 (Handlers) ---
	mw := middleware.NewMiddleware(jwtSecret)

	maxSizeMB := cfg.GetIntDefault(config.KeyUploadMaxSizeMB, 10)
	guestMaxSizeMB := cfg.GetIntDefault(config.KeyUploadGuestMaxSizeMB, 5)
	imageHandler := imagehandler.NewHandler(imageSvc, imagehandler.Options{
		MaxSizeBytes:      int64(maxSizeMB) * 1024 * 1024,
		GuestMaxSizeBytes: int64(guestMaxSizeMB) * 1024 * 1024,
		EnableGuest:       cfg.GetBool(config.KeyUploadEnableGuest),
		GuestUserID:       guestUser.ID,
	})
	userHandler := userhandler.NewHandler(tokenSvc)
	adminHandler := adminhandler.NewHandler(auditSvc)

	// --- Phase 8: 配置 Gin 引擎并注册路由 ---
	if cfg.GetBool(config.KeyServerDebug) {
		gin.SetMode(gin.DebugMode)
		log.Println("运行模式: Debug (Gin 将打印详细路由日志)")
	} else {
		gin.SetMode(gin.ReleaseMode)
		log.Println("运行模式: Release (Gin 启动日志已禁用)")
	}

	engine := gin.Default()
	if err := engine.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}); err != nil {
		return nil, cleanup, fmt.Errorf("设置信任代理失败: %w", err)
	}
	engine.ForwardedByClientIP = true

	appRouter := router.NewRouter(mw, imageHandler, userHandler, adminHandler)
	appRouter.Setup(engine)

	app := &App{
		cfg:         cfg,
		engine:      engine,
		sqlDB:       sqlDB,
		redisClient: redisClient,
		eventBus:    eventBus,
		scheduler:   scheduler,
		imageSvc:    imageSvc,
		cacheSvc:    cacheSvc,
	}
	return app, cleanup, nil
}

func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) Engine() *gin.Engine {
	return a.engine
}

func (a *App) DB() *sql.DB {
	return a.sqlDB
}

// EventBus 返回事件总线，用于发布和订阅事件
func (a *App) EventBus() *event.EventBus {
	return a.eventBus
}

func (a *App) CacheService() utility.CacheService {
	return a.cacheSvc
}

func (a *App) Run() error {
	a.scheduler.RegisterJobs()
	a.scheduler.Start()

	port := a.cfg.GetString(config.KeyServerPort)
	if port == "" {
		port = "8093"
	}
	fmt.Printf("应用程序启动成功，正在监听端口: %s\n", port)

	return a.engine.Run(":" + port)
}

// Stop 按依赖的反序停掉后台组件，保证在途的写入都能落地。
func (a *App) Stop() {
	if a.scheduler != nil {
		a.scheduler.Stop()
		log.Println("任务调度器已停止。")
	}
	if a.imageSvc != nil {
		a.imageSvc.FlushCounters()
	}
	if a.eventBus != nil {
		a.eventBus.Shutdown()
		log.Println("事件总线已停止。")
	}
}

// resolveJWTSecret 读取签名密钥；未配置时生成随机密钥，
// 此时重启会使所有已签发的 Token 失效，所以要打警告。
func resolveJWTSecret(cfg *config.Config) ([]byte, error) {
	secret := cfg.GetString(config.KeySecurityJWTSecret)
	if secret != "" {
		return []byte(secret), nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("生成临时 JWT 密钥失败: %w", err)
	}
	log.Println("⚠️  未配置 Security.JWTSecret，已生成临时密钥；重启后所有 Token 将失效，生产环境请务必在配置文件中固定密钥")
	return []byte(base64.RawURLEncoding.EncodeToString(buf)), nil
}
