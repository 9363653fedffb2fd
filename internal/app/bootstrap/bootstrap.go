/*
 * @Description: 启动引导（内置账户确定性创建）
 * @Author: 青陌
 * @Date: 2025-06-17 09:12:40
 * @LastEditTime: 2025-09-28 14:26:51
 * @LastEditors: 青陌
 */
package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/qingmo-c/qingtu-app/internal/pkg/security"
	"github.com/qingmo-c/qingtu-app/pkg/config"
	"github.com/qingmo-c/qingtu-app/pkg/constant"
	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
)

// EnsureBuiltinAccounts 确保系统内置账户存在：
//   - system_guest：所有匿名上传的归属账户，不可登录
//   - admin：首个管理员，密码来自配置，未配置时生成随机密码并打印一次
//
// 操作是幂等的，重复启动不会产生重复账户。
func EnsureBuiltinAccounts(ctx context.Context, userRepo repository.UserRepository, cfg *config.Config) (*model.User, error) {
	guest, err := ensureGuest(ctx, userRepo)
	if err != nil {
		return nil, err
	}
	if err := ensureAdmin(ctx, userRepo, cfg); err != nil {
		return nil, err
	}
	return guest, nil
}

func ensureGuest(ctx context.Context, userRepo repository.UserRepository) (*model.User, error) {
	guest, err := userRepo.FindByUsername(ctx, model.GuestUsername)
	if err == nil {
		return guest, nil
	}
	if !errors.Is(err, constant.ErrNotFound) {
		return nil, fmt.Errorf("查询访客账户失败: %w", err)
	}

	// 访客账户没有可用密码，哈希一段随机数据确保无法登录
	random, err := randomSecret()
	if err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(random)
	if err != nil {
		return nil, fmt.Errorf("生成访客账户密码哈希失败: %w", err)
	}

	guest = &model.User{
		Username:     model.GuestUsername,
		PasswordHash: hash,
		Role:         model.RoleGuest,
		Status:       model.UserStatusActive,
	}
	if err := userRepo.Create(ctx, guest); err != nil {
		return nil, fmt.Errorf("创建访客账户失败: %w", err)
	}
	log.Printf("✅ 已创建系统访客账户 (id=%d)", guest.ID)
	return guest, nil
}

func ensureAdmin(ctx context.Context, userRepo repository.UserRepository, cfg *config.Config) error {
	_, err := userRepo.FindByUsername(ctx, "admin")
	if err == nil {
		return nil
	}
	if !errors.Is(err, constant.ErrNotFound) {
		return fmt.Errorf("查询管理员账户失败: %w", err)
	}

	password := cfg.GetString(config.KeySecurityAdminPassword)
	generated := false
	if password == "" {
		password, err = randomSecret()
		if err != nil {
			return err
		}
		generated = true
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("生成管理员密码哈希失败: %w", err)
	}

	admin := &model.User{
		Username:     "admin",
		PasswordHash: hash,
		Email:        cfg.GetString(config.KeySecurityAdminEmail),
		Role:         model.RoleAdmin,
		Status:       model.UserStatusActive,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("创建管理员账户失败: %w", err)
	}

	if generated {
		// 随机密码只在首次创建时打印这一次
		log.Printf("✅ 已创建管理员账户 admin，初始密码: %s （请立即修改）", password)
	} else {
		log.Printf("✅ 已创建管理员账户 admin（密码来自配置）")
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("读取系统熵源失败: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
