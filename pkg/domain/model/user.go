/*
 * @Description: 用户领域模型
 * @Author: 青陌
 * @Date: 2025-04-13 20:20:51
 * @LastEditTime: 2025-08-30 09:12:27
 * @LastEditors: 青陌
 */
package model

import "time"

// ========= 业务常量 (与数据库实现无关) =========

// 用户角色常量
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleGuest = "guest"
)

// 用户状态常量
const (
	UserStatusActive = 1
	UserStatusBanned = 2
)

// GuestUsername 是系统保留的访客账户名。
// 所有匿名上传都归属到这个账户，它在启动引导阶段被确定性地创建。
const GuestUsername = "system_guest"

// ========= 领域模型定义 =========

type User struct {
	ID           uint       `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	Status       int        `json:"status"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
}

// IsAdmin 判断用户是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsGuest 判断用户是否为系统访客账户
func (u *User) IsGuest() bool {
	return u.Username == GuestUsername
}
