package feature

import (
	"math"
	"sort"
	"strings"

	"github.com/rushteam/scoutkit/core"
	"github.com/rushteam/scoutkit/pkg/conv"
)

// Frame 是特征工程管道内部的列式工作集。
// 承担表格数据的角色：按列存储，列序确定，支持增删列、
// 名称/值级去重与按列序导出矩阵。
//
// 数值列用 NaN 表示缺失，字符串列用 "" 表示缺失。
type Frame struct {
	names []string
	num   map[string][]float64
	str   map[string][]string
	rows  int
}

// NewFrame 从开放记录构建 Frame。
// 列名规范化为小写下划线形式；列序为全体 key 的字典序（与 map 迭代顺序无关，
// 保证同一批数据多次构建得到相同列序）。
//
// 列类型判定：只要某列出现一个非空且不可转数字的值，该列即为字符串列；
// 否则为数值列（字符串数字做宽松转换，bool 转 1/0）。
func NewFrame(records []core.Record) *Frame {
	f := &Frame{
		num:  make(map[string][]float64),
		str:  make(map[string][]string),
		rows: len(records),
	}

	// 收集规范化后的列名（重名 key 保留先出现的）
	keyOf := make(map[string]string) // normalized -> raw（首次出现）
	var names []string
	for _, rec := range records {
		for raw := range rec {
			name := NormalizeColumn(raw)
			if name == "" {
				continue
			}
			if _, ok := keyOf[name]; !ok {
				keyOf[name] = raw
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	f.names = names

	for _, name := range names {
		numeric := true
		for _, rec := range records {
			v := lookup(rec, name)
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok {
				if strings.TrimSpace(s) == "" {
					continue
				}
				if _, ok := conv.ToFloat64(s); !ok {
					numeric = false
					break
				}
			}
		}

		if numeric {
			col := make([]float64, len(records))
			for i, rec := range records {
				if val, ok := conv.ToFloat64(lookup(rec, name)); ok {
					col[i] = val
				} else {
					col[i] = math.NaN()
				}
			}
			f.num[name] = col
		} else {
			col := make([]string, len(records))
			for i, rec := range records {
				if s, ok := conv.ToString(lookup(rec, name)); ok {
					col[i] = strings.TrimSpace(s)
				}
			}
			f.str[name] = col
		}
	}
	return f
}

// lookup 在记录中查找规范化列名对应的值（记录的 raw key 也做规范化比较）
func lookup(rec core.Record, name string) any {
	if v, ok := rec[name]; ok {
		return v
	}
	for raw, v := range rec {
		if NormalizeColumn(raw) == name {
			return v
		}
	}
	return nil
}

// NormalizeColumn 规范化列名：去空白、转小写。
// 历史数据的 Pascal 下划线风格（Height_Inches、Forty_Yard_Dash）由此统一。
func NormalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Rows 返回行数
func (f *Frame) Rows() int { return f.rows }

// Columns 返回当前列序（副本）
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// HasColumn 检查列是否存在
func (f *Frame) HasColumn(name string) bool {
	_, okN := f.num[name]
	_, okS := f.str[name]
	return okN || okS
}

// IsNumeric 检查列是否为数值列
func (f *Frame) IsNumeric(name string) bool {
	_, ok := f.num[name]
	return ok
}

// Num 返回数值列（直接引用，调用方可原地修改），不存在时返回 nil
func (f *Frame) Num(name string) []float64 { return f.num[name] }

// Str 返回字符串列（直接引用），不存在时返回 nil
func (f *Frame) Str(name string) []string { return f.str[name] }

// SetNum 写入数值列；新列追加到列序末尾
func (f *Frame) SetNum(name string, col []float64) {
	if !f.HasColumn(name) {
		f.names = append(f.names, name)
	}
	delete(f.str, name)
	f.num[name] = col
}

// SetStr 写入字符串列；新列追加到列序末尾
func (f *Frame) SetStr(name string, col []string) {
	if !f.HasColumn(name) {
		f.names = append(f.names, name)
	}
	delete(f.num, name)
	f.str[name] = col
}

// FillNum 写入常数数值列
func (f *Frame) FillNum(name string, v float64) {
	col := make([]float64, f.rows)
	for i := range col {
		col[i] = v
	}
	f.SetNum(name, col)
}

// Drop 删除列（不存在时忽略）
func (f *Frame) Drop(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := f.names[:0]
	for _, n := range f.names {
		if drop[n] {
			delete(f.num, n)
			delete(f.str, n)
			continue
		}
		kept = append(kept, n)
	}
	f.names = kept
}

// Value 按 (行, 列) 取数值；列不存在、非数值或值缺失时返回 (0, false)
func (f *Frame) Value(row int, name string) (float64, bool) {
	col, ok := f.num[name]
	if !ok || row < 0 || row >= len(col) {
		return 0, false
	}
	if math.IsNaN(col[row]) {
		return 0, false
	}
	return col[row], true
}

// ValueOr 按 (行, 列) 取数值，缺失时返回默认值
func (f *Frame) ValueOr(row int, name string, def float64) float64 {
	if v, ok := f.Value(row, name); ok {
		return v
	}
	return def
}

// NumRow 返回第 i 行全部数值特征的 map 视图（缺失值跳过）
func (f *Frame) NumRow(i int) map[string]float64 {
	out := make(map[string]float64)
	for name, col := range f.num {
		if i < len(col) && !math.IsNaN(col[i]) {
			out[name] = col[i]
		}
	}
	return out
}

// DedupeValues 删除值级重复列（保留列序靠前者），返回被删除的列名。
// 两个数值列的全部值相等（NaN 视为相等）或两个字符串列的全部值相等时视为重复。
func (f *Frame) DedupeValues() []string {
	var dropped []string
	for i := 0; i < len(f.names); i++ {
		for j := i + 1; j < len(f.names); j++ {
			a, b := f.names[i], f.names[j]
			if !f.HasColumn(b) {
				continue
			}
			if f.columnsEqual(a, b) {
				dropped = append(dropped, b)
				f.Drop(b)
				j--
			}
		}
	}
	return dropped
}

func (f *Frame) columnsEqual(a, b string) bool {
	if na, ok := f.num[a]; ok {
		nb, ok := f.num[b]
		if !ok || len(na) != len(nb) {
			return false
		}
		for i := range na {
			if math.IsNaN(na[i]) && math.IsNaN(nb[i]) {
				continue
			}
			if na[i] != nb[i] {
				return false
			}
		}
		return true
	}
	sa, ok := f.str[a]
	if !ok {
		return false
	}
	sb, ok := f.str[b]
	if !ok || len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// Matrix 按给定列序导出特征矩阵。
// 列必须全部为数值列；残留的 NaN/Inf 替换为 0（下游分类器要求有限值）。
func (f *Frame) Matrix(columns []string) *core.FeatureMatrix {
	rows := make([][]float64, f.rows)
	for i := range rows {
		row := make([]float64, len(columns))
		for j, name := range columns {
			if col, ok := f.num[name]; ok && !math.IsNaN(col[i]) && !math.IsInf(col[i], 0) {
				row[j] = col[i]
			}
		}
		rows[i] = row
	}
	return &core.FeatureMatrix{Columns: columns, Rows: rows}
}
