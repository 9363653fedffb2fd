/*
 * @Description: 图片资产核心业务模型
 * @Author: 青陌
 * @Date: 2025-04-13 20:14:06
 * @LastEditTime: 2025-09-21 15:03:44
 * @LastEditors: 青陌
 */
package model

import "time"

// Image 是图片资产的核心业务模型。
// PublicID 是对外暴露的随机短标记，数据库数字主键绝不出站。
type Image struct {
	ID             uint      `json:"-"`
	PublicID       string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	OwnerID        uint      `json:"-"`
	FileName       string    `json:"fileName"`
	StoragePath    string    `json:"-"`
	MimeType       string    `json:"mimeType"`
	Format         string    `json:"format"`
	FileSize       int64     `json:"fileSize"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	PrimaryColor   string    `json:"primaryColor,omitempty"`
	IsPublic       bool      `json:"isPublic"`
	ViewCount      int64     `json:"viewCount"`
	DownloadCount  int64     `json:"downloadCount"`
	GuestUploaded  bool      `json:"guestUploaded"`
	UploaderIP     string    `json:"-"`
}

// UploadResult 是上传成功后返回给调用方的数据传输对象。
type UploadResult struct {
	PublicID string `json:"id"`
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// UpdateImageRequest 是更新图片元信息的请求结构
type UpdateImageRequest struct {
	FileName *string `json:"fileName"`
	IsPublic *bool   `json:"isPublic"`
}
