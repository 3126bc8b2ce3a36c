// Copyright (c) swingsense Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 swingsense 的测试辅助设施。

# 概述

testutil 汇集跨包复用的测试工具：带生命周期管理的测试上下文、
轮询断言、通道等待辅助，以及帧与检测事件的测试数据构造。
伪实现（语音合成器、识别器、推理后端等）位于子包 mocks。

# 子包

  - fixtures — 测试帧（JPEG 图像、协议帧消息）构造
  - mocks    — Synthesizer、Recognizer、Backend 等接口的可脚本化伪实现
*/
package testutil
