/*
 * @Description: 事件载荷定义
 * @Author: 青陌
 * @Date: 2025-06-09 10:05:44
 * @LastEditTime: 2025-08-22 17:12:06
 * @LastEditors: 青陌
 */
package event

// ImageCreatedPayload 是 ImageCreated 事件的载荷，
// 后处理监听器据此异步提取主色调等元信息。
type ImageCreatedPayload struct {
	ImageID     uint
	PublicID    string
	StoragePath string
	Format      string
}

// ImageDeletedPayload 是 ImageDeleted 事件的载荷
type ImageDeletedPayload struct {
	ImageID     uint
	PublicID    string
	StoragePath string
}
