package metrics

// Config 指标系统的配置结构体
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "sono-eval"
//	  version: "v1.0.0"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 是否启用指标收集
	// 为 false 时，metrics.New() 返回 noop Meter，所有操作都是空操作
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// ServiceName 服务名称，作为 OpenTelemetry Resource 的 service.name 属性
	ServiceName string `mapstructure:"service_name" json:"service_name" yaml:"service_name"`

	// Version 服务版本，作为 service.version 属性
	Version string `mapstructure:"version" json:"version" yaml:"version"`

	// Port Prometheus HTTP 服务器监听的端口
	// 大于 0 时启动 HTTP 服务器暴露 Prometheus 格式的指标
	Port int `mapstructure:"port" json:"port" yaml:"port"`

	// Path Prometheus 指标的 HTTP 路径（如 "/metrics"）
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}
