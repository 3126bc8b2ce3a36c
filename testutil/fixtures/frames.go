// =============================================================================
// 🖼️ 测试帧构造
// =============================================================================
// 生成检测测试用的 JPEG 图像与协议帧消息
// =============================================================================
package fixtures

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/fairwaylab/swingsense/protocol"
	"github.com/fairwaylab/swingsense/types"
)

// JPEG 生成一张 w×h 的渐变测试图并编码为 JPEG 字节。
// 渐变避免纯色图被压缩到异常小的体积。
func JPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 17), G: uint8(y * 31), B: 0x80, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Frame 构造一条带真实 JPEG 图像的采集帧
func Frame(timestamp float64) types.Frame {
	return types.Frame{
		Image:     JPEG(16, 16),
		Timestamp: timestamp,
	}
}

// FrameMessage 构造一条协议帧消息，图像为 base64 编码的真实 JPEG
func FrameMessage(timestamp float64) protocol.FrameMessage {
	return protocol.FrameMessage{
		Timestamp:   timestamp,
		ImageBase64: base64.StdEncoding.EncodeToString(JPEG(16, 16)),
	}
}
