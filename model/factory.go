package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/scoutkit/core"
)

// Encoder 是可持久化分类器需要实现的接口：
// Type 给出 artifact 里的类型标签，Encode 给出不含行为的纯数据快照。
type Encoder interface {
	// Type 分类器类型标签（如 "centroid", "rpc"）
	Type() string
	// Encode 序列化分类器参数
	Encode() ([]byte, error)
}

// Decoder 根据序列化数据重建分类器
type Decoder func(data []byte) (core.Classifier, error)

var (
	decoders   = make(map[string]Decoder)
	decodersMu sync.RWMutex
)

// RegisterDecoder 注册一种分类器的重建逻辑，供 artifact 加载使用。
// 各实现在 init 中调用，例如：func init() { model.RegisterDecoder("centroid", decodeCentroid) }
func RegisterDecoder(typeName string, decoder Decoder) {
	if typeName == "" || decoder == nil {
		return
	}
	decodersMu.Lock()
	defer decodersMu.Unlock()
	decoders[typeName] = decoder
}

// SupportedTypes 返回当前已注册的分类器类型列表（排序），用于错误提示
func SupportedTypes() []string {
	decodersMu.RLock()
	defer decodersMu.RUnlock()
	types := make([]string, 0, len(decoders))
	for t := range decoders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Decode 按类型标签重建分类器
func Decode(typeName string, data []byte) (core.Classifier, error) {
	decodersMu.RLock()
	decoder, ok := decoders[typeName]
	decodersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown classifier type %q (supported: %v)", typeName, SupportedTypes())
	}
	return decoder(data)
}

// Encode 序列化分类器；分类器必须实现 Encoder
func Encode(c core.Classifier) (typeName string, data []byte, err error) {
	enc, ok := c.(Encoder)
	if !ok {
		return "", nil, fmt.Errorf("classifier %q is not encodable", c.Name())
	}
	data, err = enc.Encode()
	if err != nil {
		return "", nil, err
	}
	return enc.Type(), data, nil
}
