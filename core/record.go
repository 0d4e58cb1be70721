package core

import (
	"strconv"
	"strings"
)

// Record 是一条开放的运动员数据记录。
// key 为列名，value 为任意标量（数字、字符串、bool），缺失的列直接不出现。
// 上游数据（CSV 导出、表单提交）经常把数字写成字符串，读取时统一做宽松转换。
type Record map[string]any

// Float 按 key 取数值，支持字符串数字的宽松转换。
// 取不到或不可转换时返回 (0, false)。
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String 按 key 取字符串，去除首尾空白。
// 取不到或为空时返回 ("", false)。
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// Has 检查 key 是否存在且非 nil
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Clone 复制一条记录（浅拷贝 value）
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
