// Package config 提供 WarmFlow 的统一配置加载，
// 支持 YAML 文件 + 环境变量覆盖（前缀 WARMFLOW_）。
package config
