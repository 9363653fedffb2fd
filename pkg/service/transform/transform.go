/*
 * @Description: 图片动态变换服务（缩放与重编码）
 * @Author: 青陌
 * @Date: 2025-06-05 14:12:50
 * @LastEditTime: 2025-09-25 16:48:21
 * @LastEditors: 青陌
 */
package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// 变换参数的合法区间
const (
	MaxDimension = 8192
	MinQuality   = 1
	MaxQuality   = 100
	// DefaultQuality 是未指定 q 参数时的 JPEG 编码质量
	DefaultQuality = 85
)

// Options 描述一次变换请求。
// Width/Height 为 0 表示该维度不限制；Quality 为 0 表示使用默认值。
type Options struct {
	Width   int
	Height  int
	Quality int
}

// IsNoop 判断该请求是否不需要任何变换
func (o Options) IsNoop() bool {
	return o.Width == 0 && o.Height == 0 && (o.Quality == 0 || o.Quality == DefaultQuality)
}

// Validate 校验变换参数是否落在合法区间
func (o Options) Validate() error {
	if o.Width < 0 || o.Width > MaxDimension {
		return fmt.Errorf("宽度 %d 超出合法区间 [0, %d]", o.Width, MaxDimension)
	}
	if o.Height < 0 || o.Height > MaxDimension {
		return fmt.Errorf("高度 %d 超出合法区间 [0, %d]", o.Height, MaxDimension)
	}
	if o.Quality != 0 && (o.Quality < MinQuality || o.Quality > MaxQuality) {
		return fmt.Errorf("质量 %d 超出合法区间 [%d, %d]", o.Quality, MinQuality, MaxQuality)
	}
	return nil
}

// FitWithin 计算在目标框内等比缩放后的尺寸，绝不放大。
// maxW/maxH 为 0 表示该维度不限制。
func FitWithin(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return srcW, srcH
	}

	rw := math.Inf(1)
	if maxW > 0 {
		rw = float64(maxW) / float64(srcW)
	}
	rh := math.Inf(1)
	if maxH > 0 {
		rh = float64(maxH) / float64(srcH)
	}

	ratio := math.Min(rw, rh)
	if ratio >= 1 || math.IsInf(ratio, 1) {
		// 目标框比原图大（或未限制），保持原尺寸
		return srcW, srcH
	}

	w := int(math.Round(float64(srcW) * ratio))
	h := int(math.Round(float64(srcH) * ratio))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// OutputContentType 返回指定源格式的变换产物的 Content-Type。
// 与 Apply 的编码选择是同一份规则：没有纯 Go 编码器的格式降级为无损 PNG。
func OutputContentType(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	default:
		return "image/png"
	}
}

// Result 是一次变换的产物
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Service 提供图片缩放与重编码能力
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Apply 解码原图，按 Options 缩放并重编码。
// 输出格式跟随原格式；WebP 和 BMP 没有纯 Go 编码器，统一降级为无损 PNG。
func (s *Service) Apply(data []byte, format string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %w", err)
	}

	bounds := img.Bounds()
	targetW, targetH := FitWithin(bounds.Dx(), bounds.Dy(), opts.Width, opts.Height)

	if targetW != bounds.Dx() || targetH != bounds.Dy() {
		img = imaging.Resize(img, targetW, targetH, imaging.Lanczos)
	}

	quality := opts.Quality
	if quality == 0 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	contentType := OutputContentType(format)

	switch contentType {
	case "image/jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	case "image/gif":
		err = gif.Encode(&buf, img, nil)
	default:
		// png 本身，以及 webp/bmp 等无纯 Go 编码器的格式
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("重编码图片失败 (格式: %s): %w", format, err)
	}

	return &Result{
		Data:        buf.Bytes(),
		ContentType: contentType,
		Width:       targetW,
		Height:      targetH,
	}, nil
}
