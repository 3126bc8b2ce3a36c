// Package media 提供外发帧的图像预处理。
//
// 检测通道发送每一帧前依次执行：缩放到包围盒 → 可选去饱和 →
// JPEG 压缩 → base64 编码，以约束出站带宽与推理成本。
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"

	_ "image/gif" // 注册 GIF 解码器
	_ "image/png" // 注册 PNG 解码器
)

// 默认值
const (
	DefaultMaxEdge = 512
	DefaultQuality = 70
	MinQuality     = 10
)

// FrameConfig 配置帧预处理行为。
type FrameConfig struct {
	// MaxEdge 包围盒边长（像素），0 表示不缩放
	MaxEdge int
	// Grayscale 是否去饱和
	Grayscale bool
	// Quality JPEG 压缩质量（1-100）
	Quality int
}

// DefaultFrameConfig 返回默认帧预处理配置。
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		MaxEdge:   DefaultMaxEdge,
		Grayscale: true,
		Quality:   DefaultQuality,
	}
}

// PrepareResult 一次帧预处理的结果。
type PrepareResult struct {
	// Base64 编码后的 JPEG 数据
	Base64 string
	// Width / Height 编码后尺寸
	Width  int
	Height int
	// OriginalSize / EncodedSize 字节数
	OriginalSize int
	EncodedSize  int
}

// PrepareFrame 将原始图像字节处理为可上线的 base64 负载。
func PrepareFrame(data []byte, cfg FrameConfig) (*PrepareResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame data")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	// 缩放到包围盒
	bounds := img.Bounds()
	w, h := fitBounds(bounds.Dx(), bounds.Dy(), cfg.MaxEdge)
	if w != bounds.Dx() || h != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	// 去饱和
	if cfg.Grayscale {
		img = desaturate(img)
	}

	// JPEG 压缩
	quality := cfg.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	if quality < MinQuality {
		quality = MinQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	final := img.Bounds()
	return &PrepareResult{
		Base64:       base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:        final.Dx(),
		Height:       final.Dy(),
		OriginalSize: len(data),
		EncodedSize:  buf.Len(),
	}, nil
}

// fitBounds 计算保持纵横比缩放到 maxEdge 包围盒后的尺寸。
func fitBounds(w, h, maxEdge int) (int, int) {
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return w, h
	}

	if w >= h {
		ratio := float64(maxEdge) / float64(w)
		w = maxEdge
		h = int(float64(h) * ratio)
	} else {
		ratio := float64(maxEdge) / float64(h)
		h = maxEdge
		w = int(float64(w) * ratio)
	}

	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// desaturate 将图像转为灰度。
func desaturate(src image.Image) image.Image {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return dst
}
