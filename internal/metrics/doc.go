// 版权所有 2026 WarmFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的全链路指标采集能力，覆盖
HTTP、转接、令牌、房间与摘要五大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 转接指标：终态计数（completed/abandoned）、转接耗时、
    活跃转接数 Gauge、回收器驱逐计数。
  - 令牌指标：访问令牌签发计数，按 role 分组。
  - 房间指标：房间创建计数、媒体服务 API 错误计数，
    按 operation/code 分组。
  - 摘要指标：摘要生成计数（按 type/status 分组）、
    情感分析降级计数。
*/
package metrics
