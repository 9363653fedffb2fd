/*
 * @Description: 数据库迁移服务（启动时建表与索引）
 * @Author: 青陌
 * @Date: 2025-05-12
 */
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// MigrationService 数据库迁移服务
type MigrationService struct {
	db     *sql.DB
	dbType string
}

// NewMigrationService 创建迁移服务
func NewMigrationService(db *sql.DB, dbType string) *MigrationService {
	return &MigrationService{
		db:     db,
		dbType: dbType,
	}
}

// RunMigrations 执行所有迁移
func (m *MigrationService) RunMigrations(ctx context.Context) error {
	log.Println("📋 开始执行数据库迁移...")

	if err := m.createUsersTable(ctx); err != nil {
		return fmt.Errorf("users 表迁移失败: %w", err)
	}

	if err := m.createImagesTable(ctx); err != nil {
		return fmt.Errorf("images 表迁移失败: %w", err)
	}

	if err := m.createAuditLogsTable(ctx); err != nil {
		return fmt.Errorf("audit_logs 表迁移失败: %w", err)
	}

	log.Println("✅ 数据库迁移完成")
	return nil
}

// pk 返回当前方言的自增主键列定义
func (m *MigrationService) pk() string {
	switch m.dbType {
	case "mysql", "mariadb":
		return "id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY"
	case "postgres":
		return "id BIGSERIAL PRIMARY KEY"
	default: // sqlite
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

func (m *MigrationService) createUsersTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS users (
			%s,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			username VARCHAR(64) NOT NULL,
			password_hash VARCHAR(128) NOT NULL,
			email VARCHAR(191) NOT NULL DEFAULT '',
			role VARCHAR(16) NOT NULL DEFAULT 'user',
			status SMALLINT NOT NULL DEFAULT 1,
			last_login_at TIMESTAMP NULL
		)`, m.pk())

	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return err
	}

	m.createIndex(ctx, "CREATE UNIQUE INDEX idx_users_username ON users(username)")
	return nil
}

func (m *MigrationService) createImagesTable(ctx context.Context) error {
	// is_public 与 guest_uploaded 用 SMALLINT 存 1/0，避免各驱动布尔扫描差异
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS images (
			%s,
			public_id VARCHAR(32) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			owner_id BIGINT NOT NULL,
			file_name VARCHAR(255) NOT NULL,
			storage_path VARCHAR(512) NOT NULL,
			mime_type VARCHAR(64) NOT NULL,
			format VARCHAR(16) NOT NULL,
			file_size BIGINT NOT NULL,
			width INT NOT NULL DEFAULT 0,
			height INT NOT NULL DEFAULT 0,
			primary_color VARCHAR(16) NOT NULL DEFAULT '',
			is_public SMALLINT NOT NULL DEFAULT 1,
			view_count BIGINT NOT NULL DEFAULT 0,
			download_count BIGINT NOT NULL DEFAULT 0,
			guest_uploaded SMALLINT NOT NULL DEFAULT 0,
			uploader_ip VARCHAR(64) NOT NULL DEFAULT ''
		)`, m.pk())

	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return err
	}

	m.createIndex(ctx, "CREATE UNIQUE INDEX idx_images_public_id ON images(public_id)")
	m.createIndex(ctx, "CREATE INDEX idx_images_owner_id ON images(owner_id)")
	m.createIndex(ctx, "CREATE INDEX idx_images_created_at ON images(created_at)")
	return nil
}

func (m *MigrationService) createAuditLogsTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			%s,
			event_id VARCHAR(40) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			event VARCHAR(64) NOT NULL,
			actor_id BIGINT NOT NULL DEFAULT 0,
			target_id VARCHAR(32) NOT NULL DEFAULT '',
			detail VARCHAR(512) NOT NULL DEFAULT '',
			client_ip VARCHAR(64) NOT NULL DEFAULT ''
		)`, m.pk())

	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return err
	}

	m.createIndex(ctx, "CREATE INDEX idx_audit_logs_event ON audit_logs(event)")
	m.createIndex(ctx, "CREATE INDEX idx_audit_logs_created_at ON audit_logs(created_at)")
	return nil
}

// createIndex 创建索引，忽略"已存在"类错误
func (m *MigrationService) createIndex(ctx context.Context, ddl string) {
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "already exists") ||
			strings.Contains(msg, "Duplicate key name") ||
			strings.Contains(msg, "Duplicate entry") {
			return
		}
		log.Printf("⚠️ 警告：创建索引失败 (%s): %v", ddl, err)
	}
}
