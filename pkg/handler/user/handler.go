/*
 * @Description: 用户认证 HTTP 处理器
 * @Author: 青陌
 * @Date: 2025-06-18 14:20:07
 * @LastEditTime: 2025-09-28 16:45:12
 * @LastEditors: 青陌
 */
package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qingmo-c/qingtu-app/internal/app/middleware"
	"github.com/qingmo-c/qingtu-app/pkg/constant"
	"github.com/qingmo-c/qingtu-app/pkg/response"
	authservice "github.com/qingmo-c/qingtu-app/pkg/service/auth"
)

// Handler 处理登录和令牌刷新
type Handler struct {
	tokenSvc *authservice.TokenService
}

// NewHandler 创建用户处理器
func NewHandler(tokenSvc *authservice.TokenService) *Handler {
	return &Handler{tokenSvc: tokenSvc}
}

// LoginRequest 是登录请求体
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 是令牌刷新请求体
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Login 校验用户名密码并颁发令牌
// @Summary 用户登录
// @Router /api/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	pair, user, err := h.tokenSvc.Login(c.Request.Context(), req.Username, req.Password, middleware.GetClientIP(c))
	if err != nil {
		if errors.Is(err, constant.ErrUnauthorized) {
			response.Fail(c, http.StatusUnauthorized, "用户名或密码错误")
			return
		}
		response.Fail(c, http.StatusInternalServerError, "服务器内部错误")
		return
	}

	response.Success(c, gin.H{
		"tokens": pair,
		"user": gin.H{
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	}, "登录成功")
}

// Refresh 用 Refresh Token 换发新的令牌对
// @Summary 刷新令牌
// @Router /api/token/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	pair, err := h.tokenSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, constant.ErrInvalidToken) || errors.Is(err, constant.ErrUnauthorized) {
			response.Fail(c, http.StatusUnauthorized, "刷新令牌无效或已过期")
			return
		}
		response.Fail(c, http.StatusInternalServerError, "服务器内部错误")
		return
	}

	response.Success(c, pair, "刷新成功")
}
