/*
 * @Description: 审计日志领域模型
 * @Author: 青陌
 * @Date: 2025-05-02 16:44:10
 * @LastEditTime: 2025-08-19 21:30:55
 * @LastEditors: 青陌
 */
package model

import "time"

// 审计事件类型
const (
	AuditImageUploaded   = "image.uploaded"
	AuditImageDeleted    = "image.deleted"
	AuditImageUpdated    = "image.updated"
	AuditGuestUpload     = "image.guest_uploaded"
	AuditUserLogin       = "user.login"
)

// AuditLog 记录一条对资产或账户的敏感操作。
// EventID 是全局唯一的 UUID，便于跨日志系统关联。
type AuditLog struct {
	ID        uint      `json:"id"`
	EventID   string    `json:"eventId"`
	CreatedAt time.Time `json:"created_at"`
	Event     string    `json:"event"`
	ActorID   uint      `json:"actorId"`
	TargetID  string    `json:"targetId"`
	Detail    string    `json:"detail"`
	ClientIP  string    `json:"clientIp"`
}
