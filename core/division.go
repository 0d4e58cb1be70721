package core

import "strings"

// 档位类别常量。四档结果：类别值越大档位越高。
// D3 与 NAIA 合并为同一档（训练数据中两者不可区分）。
const (
	ClassD3     = 0 // D3 / NAIA
	ClassD2     = 1 // D2
	ClassFCS    = 2 // FCS
	ClassPower5 = 3 // Power 5
)

// NumClasses 档位类别数
const NumClasses = 4

// DivisionClass 将联赛档位字符串映射为类别值（大小写不敏感）。
// 未知档位返回 (ClassD3, false)，调用方应记录警告后按 D3 处理。
func DivisionClass(division string) (int, bool) {
	switch strings.ToUpper(strings.TrimSpace(division)) {
	case "POWER 5", "POWER5":
		return ClassPower5, true
	case "FCS":
		return ClassFCS, true
	case "D2":
		return ClassD2, true
	case "D3":
		return ClassD3, true
	case "NAIA":
		return ClassD3, true
	default:
		return ClassD3, false
	}
}

// ClassName 返回类别值对应的档位名
func ClassName(class int) string {
	switch class {
	case ClassPower5:
		return "Power 5"
	case ClassFCS:
		return "FCS"
	case ClassD2:
		return "D2"
	default:
		return "D3/NAIA"
	}
}

// Positions 支持的位置列表
var Positions = []string{"qb", "rb", "wr"}

// IsValidPosition 检查位置是否受支持（大小写不敏感）
func IsValidPosition(position string) bool {
	p := strings.ToLower(strings.TrimSpace(position))
	for _, pos := range Positions {
		if p == pos {
			return true
		}
	}
	return false
}
