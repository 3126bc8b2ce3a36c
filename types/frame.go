package types

// Frame 是一帧相机图像及其会话相对捕获时间戳。
// Timestamp 以会话开始为零点，单调递增，永不为负。
type Frame struct {
	// Image 原始图像字节（编解码格式由采集方决定）
	Image []byte
	// Timestamp 会话相对捕获时间，单位秒
	Timestamp float64
}
