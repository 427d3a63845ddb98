package metrics

import (
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Label 指标标签结构体
// 用于为指标添加维度信息，实现指标的细粒度分组和筛选
//
// 注意：避免高基数标签（如请求 ID、客户端 IP），会影响监控系统性能。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数，创建一个 Label 实例
//
// 使用示例：
//
//	counter.Inc(ctx, metrics.L("backend", "redis"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// toAttributes 将 Label 转换为 OTel 属性（内部使用）
func toAttributes(labels []Label) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for _, l := range labels {
		attrs = append(attrs, attribute.String(l.Key, l.Value))
	}
	return attrs
}

// labelKey 生成标签组合的稳定键，用于 Gauge 的本地状态（内部使用）
func labelKey(labels []Label) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.Key+"="+l.Value)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
