/*
 * @Description: 上传配置与入站数据模型
 * @Author: 青陌
 * @Date: 2025-04-14 10:02:33
 * @LastEditTime: 2025-09-21 15:10:19
 * @LastEditors: 青陌
 */
package model

import "io"

// UploadProfile 描述一类上传通道的约束：允许的格式和大小上限。
type UploadProfile struct {
	Name           string
	AllowedFormats map[string]bool
	MaxSizeBytes   int64
}

// Allows 判断扩展名（不含点，已小写）是否在该通道的白名单内。
func (p *UploadProfile) Allows(ext string) bool {
	return p.AllowedFormats[ext]
}

// NewAuthenticatedProfile 返回登录用户的上传通道配置。
func NewAuthenticatedProfile(maxSizeBytes int64) *UploadProfile {
	return &UploadProfile{
		Name: "authenticated",
		AllowedFormats: map[string]bool{
			"jpeg": true, "jpg": true, "png": true,
			"gif": true, "webp": true, "svg": true,
		},
		MaxSizeBytes: maxSizeBytes,
	}
}

// NewGuestProfile 返回访客上传通道配置，格式白名单更窄。
func NewGuestProfile(maxSizeBytes int64) *UploadProfile {
	return &UploadProfile{
		Name: "guest",
		AllowedFormats: map[string]bool{
			"jpeg": true, "jpg": true, "png": true, "webp": true,
		},
		MaxSizeBytes: maxSizeBytes,
	}
}

// UploadInput 是一次入站上传的全部信息。
// MimeType 是客户端声明的 Content-Type，校验和存储扩展名都以它为准；
// FileName 仅作展示用途，不参与任何路径推导。
type UploadInput struct {
	FileName string
	MimeType string
	Reader   io.Reader
	OwnerID  uint
	IsPublic bool
	Guest    bool
	ClientIP string
}
