// Copyright (c) WarmFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 WarmFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 WarmFlow 所有 HTTP 端点的请求处理逻辑，
包括令牌签发、房间管理、转接编排、通话摘要以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，通过 Swagger 注解生成 API 文档。

# 核心类型

  - TokenHandler     — 房间访问令牌签发
  - RoomHandler      — 房间 CRUD、参与者列表与统计
  - TransferHandler  — 转接发起、完成、放弃、状态查询与聚合统计
  - SummaryHandler   — 通话摘要、建议问题与情感分析
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口（LiveKit、LLM 等）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 转接编排：两次并发完成请求只有一次成功（409 冲突）
  - 摘要管线：errgroup 并发生成摘要与情感分析
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
