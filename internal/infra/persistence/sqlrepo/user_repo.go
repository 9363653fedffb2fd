/*
 * @Description: 用户仓储的 database/sql 实现
 * @Author: 青陌
 * @Date: 2025-05-12 16:40:09
 * @LastEditTime: 2025-08-30 10:02:54
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

type userRepo struct {
	db     *sql.DB
	driver string
}

// NewUserRepo 创建用户仓储实例
func NewUserRepo(db *sql.DB, driver string) repository.UserRepository {
	return &userRepo{db: db, driver: driver}
}

const userColumns = `id, created_at, updated_at, username, password_hash, email, role, status, last_login_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	var u model.User
	var lastLogin sql.NullTime
	err := row.Scan(
		&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Username, &u.PasswordHash,
		&u.Email, &u.Role, &u.Status, &lastLogin,
	)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC().Truncate(time.Second)
	user.CreatedAt = now
	user.UpdatedAt = now

	query := rebind(r.driver, `
		INSERT INTO users (created_at, updated_at, username, password_hash, email, role, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	args := []interface{}{
		user.CreatedAt, user.UpdatedAt, user.Username, user.PasswordHash,
		user.Email, user.Role, user.Status,
	}

	if r.driver == "postgres" {
		query += " RETURNING id"
		var id uint
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return fmt.Errorf("插入用户失败: %w", err)
		}
		user.ID = id
		return nil
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("插入用户失败: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("获取自增主键失败: %w", err)
	}
	user.ID = uint(id)
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id uint) (*model.User, error) {
	query := rebind(r.driver, "SELECT "+userColumns+" FROM users WHERE id = ?")
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("用户 %d: %w", id, constant.ErrNotFound)
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return u, nil
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := rebind(r.driver, "SELECT "+userColumns+" FROM users WHERE username = ?")
	u, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("用户 %s: %w", username, constant.ErrNotFound)
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return u, nil
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id uint) error {
	query := rebind(r.driver, "UPDATE users SET last_login_at = ? WHERE id = ?")
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	return err
}
