/*
 * @Description: 用户数据操作契约
 * @Author: 青陌
 * @Date: 2025-04-14 11:26:40
 * @LastEditTime: 2025-08-19 21:33:02
 * @LastEditors: 青陌
 */
package repository

import (
	"context"

	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
)

// UserRepository 定义了用户数据操作的契约。
type UserRepository interface {
	// Create 持久化一个新用户并回填主键。
	Create(ctx context.Context, user *model.User) error

	// FindByID 按主键查找用户，不存在时返回 constant.ErrNotFound。
	FindByID(ctx context.Context, id uint) (*model.User, error)

	// FindByUsername 按用户名查找用户，不存在时返回 constant.ErrNotFound。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// UpdateLastLogin 记录最近一次登录时间。
	UpdateLastLogin(ctx context.Context, id uint) error
}
