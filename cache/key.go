package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Key 类型化缓存键
//
// 由调用点名、按调用顺序排列的位置参数和按名排序的关键字参数组成。
// 关键字参数的添加顺序不影响摘要，位置参数的顺序始终影响摘要。
type Key struct {
	// Site 调用点名（如被包装函数的逻辑名字）
	Site string

	// Args 位置参数，按调用顺序
	Args []any

	// Kwargs 关键字参数（摘要时按名排序）
	Kwargs []Kwarg
}

// Kwarg 关键字参数
type Kwarg struct {
	Name  string
	Value any
}

// NewKey 构造缓存键
func NewKey(site string, args ...any) Key {
	return Key{Site: site, Args: args}
}

// WithKwarg 追加一个关键字参数，返回新键
func (k Key) WithKwarg(name string, value any) Key {
	kwargs := make([]Kwarg, len(k.Kwargs), len(k.Kwargs)+1)
	copy(kwargs, k.Kwargs)
	k.Kwargs = append(kwargs, Kwarg{Name: name, Value: value})
	return k
}

// Digest 返回键的 sha256 十六进制摘要
//
// 规范化编码固定为：
//
//	site NUL ( "a:" print(arg) NUL )* ( "k:" name "=" print(value) NUL )*
//
// 其中 print 为 Go 的 %v 格式化，关键字参数按名字典序排列。
// 编码固定且有文档，摘要在不同进程间可复现。
func (k Key) Digest() string {
	h := sha256.New()

	h.Write([]byte(k.Site))
	h.Write([]byte{0})

	for _, arg := range k.Args {
		fmt.Fprintf(h, "a:%v", arg)
		h.Write([]byte{0})
	}

	if len(k.Kwargs) > 0 {
		sorted := make([]Kwarg, len(k.Kwargs))
		copy(sorted, k.Kwargs)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

		for _, kw := range sorted {
			fmt.Fprintf(h, "k:%s=%v", kw.Name, kw.Value)
			h.Write([]byte{0})
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// storageKey 返回存储层使用的键：调用点名 + ":" + 摘要
//
// 调用点名保留在明文部分，按模式失效据此匹配。
func (k Key) storageKey() string {
	return k.Site + ":" + k.Digest()
}
