/*
 * @Description:
 * @Author: 青陌
 * @Date: 2025-03-02 11:42:18
 * @LastEditTime: 2025-09-14 20:31:07
 * @LastEditors: 青陌
 */
package constant

import "errors"

// 定义业务逻辑相关的标准错误
var (
	// ErrNotFound 表示资源未找到，可以由 Handler 转换为 404
	ErrNotFound = errors.New("资源未找到")

	// ErrForbidden 表示无权访问，可以由 Handler 转换为 403
	ErrForbidden = errors.New("操作禁止")

	// ErrBadRequest 表示请求参数错误，可以由 Handler 转换为 400
	ErrBadRequest = errors.New("错误的请求")

	// ErrUnauthorized 表示未授权，可以由 Handler 转换为 401
	ErrUnauthorized = errors.New("未经授权的访问")

	// ErrInvalidToken 表示无效的令牌，可以由 Handler 转换为 401
	ErrInvalidToken = errors.New("无效令牌")

	// ErrInternalServer 表示服务器内部错误，可以由 Handler 转换为 500
	ErrInternalServer = errors.New("内部服务器错误")

	// ErrInvalidType 表示上传的文件类型不在允许列表中，可以由 Handler 转换为 400
	ErrInvalidType = errors.New("不支持的文件类型")

	// ErrFileTooLarge 表示上传的文件超出大小限制，可以由 Handler 转换为 400
	ErrFileTooLarge = errors.New("文件大小超出限制")

	// ErrGuestUploadDisabled 表示游客上传功能已被关闭，可以由 Handler 转换为 403
	ErrGuestUploadDisabled = errors.New("游客上传功能已被管理员禁用")

	// ErrStorageFailure 表示磁盘读写失败，可以由 Handler 转换为 500
	ErrStorageFailure = errors.New("存储读写失败")

	// ErrDuplicateKey 表示唯一约束冲突，调用方可据此重新生成 ID 后重试
	ErrDuplicateKey = errors.New("唯一键冲突")
)
