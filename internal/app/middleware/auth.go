/*
 * @Description: JWT 认证中间件
 * @Author: 青陌
 * @Date: 2025-06-16 09:25:33
 * @LastEditTime: 2025-09-28 11:20:14
 * @LastEditors: 青陌
 */
package middleware

import (
	"net/http"
	"strings"

	"github.com/qingmo-c/qingtu-app/internal/pkg/auth"
	"github.com/qingmo-c/qingtu-app/pkg/domain/model"
	"github.com/qingmo-c/qingtu-app/pkg/idgen"
	"github.com/qingmo-c/qingtu-app/pkg/response"

	"github.com/gin-gonic/gin"
)

type Middleware struct {
	jwtSecret []byte
}

func NewMiddleware(jwtSecret []byte) *Middleware {
	return &Middleware{jwtSecret: jwtSecret}
}

// JWTAuth 是一个强制性的JWT认证中间件
func (m *Middleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			response.Fail(c, http.StatusUnauthorized, "请求未携带Token，无权限访问")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			response.Fail(c, http.StatusUnauthorized, "Token格式不正确")
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(parts[1], m.jwtSecret)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "无效或过期的Token")
			c.Abort()
			return
		}

		c.Set(auth.ClaimsKey, claims)
		c.Next()
	}
}

// JWTAuthOptional 是一个可选的JWT认证中间件
// 没有Token时放行（访客身份）；有Token但无效时返回401触发前端刷新
func (m *Middleware) JWTAuthOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			c.Next() // 没有Token，直接放行（游客）
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			c.Next() // Token格式不正确，直接放行（游客）
			return
		}

		claims, err := auth.ParseToken(parts[1], m.jwtSecret)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "Token已过期")
			c.Abort()
			return
		}

		c.Set(auth.ClaimsKey, claims)
		c.Next()
	}
}

// AdminAuth 是一个管理员权限验证中间件，必须串在 JWTAuth 之后
func (m *Middleware) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(auth.ClaimsKey)
		if !exists {
			response.Fail(c, http.StatusForbidden, "权限信息获取失败")
			c.Abort()
			return
		}

		claims, ok := claimsValue.(*auth.CustomClaims)
		if !ok {
			response.Fail(c, http.StatusForbidden, "权限信息格式不正确")
			c.Abort()
			return
		}

		if claims.Role != model.RoleAdmin {
			response.Fail(c, http.StatusForbidden, "权限不足：此操作需要管理员权限")
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentUser 从上下文中取出当前用户的数据库ID和角色。
// 未认证时返回 (0, "", false)。
func CurrentUser(c *gin.Context) (uint, string, bool) {
	claimsValue, exists := c.Get(auth.ClaimsKey)
	if !exists {
		return 0, "", false
	}
	claims, ok := claimsValue.(*auth.CustomClaims)
	if !ok {
		return 0, "", false
	}

	userID, entityType, err := idgen.DecodePublicID(claims.UserID)
	if err != nil || entityType != idgen.EntityTypeUser {
		return 0, "", false
	}
	return userID, claims.Role, true
}
