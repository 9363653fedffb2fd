/*
 * @Description: 存储路径与格式归一化
 * @Author: 青陌
 * @Date: 2025-06-08 11:40:17
 * @LastEditTime: 2025-09-26 15:02:48
 * @LastEditors: 青陌
 */
package image

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ExtOf 取出文件名的扩展名（小写、不含点）。
func ExtOf(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return strings.TrimPrefix(ext, ".")
}

// ExtForMime 把声明的 Content-Type 映射为存储扩展名（不含点）。
// 扩展名只来自这里，绝不取自客户端提供的文件名。
// 未知类型返回空字符串。
func ExtForMime(mimeType string) string {
	// 去掉 "; charset=..." 这类参数再比对
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch mt {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/svg+xml":
		return "svg"
	case "image/bmp":
		return "bmp"
	default:
		return ""
	}
}

// FormatOf 将扩展名归一化为内部格式名，jpg 和 jpeg 统一为 jpeg。
func FormatOf(ext string) string {
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}

// MimeTypeOf 返回格式对应的 Content-Type。
func MimeTypeOf(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "svg":
		return "image/svg+xml"
	case "bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

// StoragePathFor 生成按年月分桶的存储相对路径，例如 2025/06/<id>.png。
// 路径统一使用正斜杠，与数据库记录保持一致。
func StoragePathFor(publicID, ext string, t time.Time) string {
	return fmt.Sprintf("%04d/%02d/%s.%s", t.Year(), int(t.Month()), publicID, ext)
}
