/*
 * @Description: 登录与令牌服务
 * @Author: 青陌
 * @Date: 2025-06-12 10:30:41
 * @LastEditTime: 2025-09-27 16:20:05
 * @LastEditors: 青陌
 */
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/qingmo-c/qingtu-app/internal/pkg/auth"
	"github.com/qingmo-c/qingtu-app/internal/pkg/event"
	"github.com/qingmo-c/qingtu-app/internal/pkg/security"
	"github.com/qingmo-c/qingtu-app/pkg/constant"
	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/domain/repository"
	"github.com/qingmo-c/qingtu-app/pkg/idgen"
)

// TokenPair 是一次登录颁发的令牌对
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService 负责登录校验和令牌颁发
type TokenService struct {
	userRepo  repository.UserRepository
	bus       *event.EventBus
	jwtSecret []byte
}

// NewTokenService 创建令牌服务
func NewTokenService(userRepo repository.UserRepository, bus *event.EventBus, jwtSecret []byte) *TokenService {
	return &TokenService{
		userRepo:  userRepo,
		bus:       bus,
		jwtSecret: jwtSecret,
	}
}

// Login 校验用户名密码并颁发令牌对。
// 用户不存在与密码错误返回同一个错误，不泄露账户存在性。
func (s *TokenService) Login(ctx context.Context, username, password, clientIP string) (*TokenPair, *model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, constant.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: 用户名或密码错误", constant.ErrUnauthorized)
		}
		return nil, nil, err
	}

	if user.Status != model.UserStatusActive || user.IsGuest() {
		return nil, nil, fmt.Errorf("%w: 账户不可用", constant.ErrUnauthorized)
	}

	if !security.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil, fmt.Errorf("%w: 用户名或密码错误", constant.ErrUnauthorized)
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("[TokenService] WARN: 更新最近登录时间失败 (id=%d): %v", user.ID, err)
	}

	s.bus.Publish(event.AuditRecorded, &model.AuditLog{
		EventID:  uuid.NewString(),
		Event:    model.AuditUserLogin,
		ActorID:  user.ID,
		Detail:   user.Username,
		ClientIP: clientIP,
	})

	return pair, user, nil
}

// Refresh 校验 Refresh Token 并换发新的令牌对
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := auth.ParseToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constant.ErrInvalidToken, err)
	}

	userID, entityType, err := idgen.DecodePublicID(claims.UserID)
	if err != nil || entityType != idgen.EntityTypeUser {
		return nil, fmt.Errorf("%w: 令牌主体无效", constant.ErrInvalidToken)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, constant.ErrNotFound) {
			return nil, fmt.Errorf("%w: 令牌主体不存在", constant.ErrInvalidToken)
		}
		return nil, err
	}
	if user.Status != model.UserStatusActive {
		return nil, fmt.Errorf("%w: 账户不可用", constant.ErrUnauthorized)
	}

	return s.issue(user)
}

func (s *TokenService) issue(user *model.User) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(user.ID, user.Role, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("颁发访问令牌失败: %w", err)
	}
	refreshToken, err := auth.GenerateRefreshToken(user.ID, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("颁发刷新令牌失败: %w", err)
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
