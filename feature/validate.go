package feature

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/rushteam/scoutkit/core"
)

// 必备列默认值。输入缺列时补默认值而不是拒绝请求，
// 线上请求经常只带比赛数据不带体测数据。
const (
	DefaultHeightInches = 70.0
	DefaultWeightLbs    = 180.0
	DefaultDivision     = "D3"
	DefaultState        = "ZZ"
	DefaultGames        = 12.0
)

// validateFrame 校验并修复输入工作集：
//  1. 值级重复列去除（名称级重复在 Frame 构建与 CSV 解析时已处理）
//  2. 补齐必备列（height_inches / weight_lbs / position / division / state / games）
//  3. 数值必备列强制转数值，无法转换的值落回默认值
//  4. 字符串列（position / division / state）去空白并转大写
//
// 输入为空时返回 DATA_VALIDATION 错误。
func validateFrame(f *Frame, position string) error {
	if f == nil || f.Rows() == 0 {
		return core.NewDomainError(core.ModuleFeature, core.ErrorCodeDataValidation,
			"feature: input records are empty")
	}

	if dropped := f.DedupeValues(); len(dropped) > 0 {
		log.Printf("[feature] removed value-duplicate columns: %v", dropped)
	}

	numericDefaults := map[string]float64{
		"height_inches": DefaultHeightInches,
		"weight_lbs":    DefaultWeightLbs,
		"games":         DefaultGames,
	}
	stringDefaults := map[string]string{
		"position": strings.ToUpper(position),
		"division": DefaultDivision,
		"state":    DefaultState,
	}

	for name, def := range numericDefaults {
		if !f.HasColumn(name) {
			f.FillNum(name, def)
			log.Printf("[feature] added missing essential column %q with default %v", name, def)
			continue
		}
		if !f.IsNumeric(name) {
			// 字符串列里混入了坏值，逐行宽松转换
			src := f.Str(name)
			col := make([]float64, f.Rows())
			for i, s := range src {
				col[i] = parseFloatOr(s, def)
			}
			f.SetNum(name, col)
			continue
		}
		col := f.Num(name)
		for i, v := range col {
			if math.IsNaN(v) {
				col[i] = def
			}
		}
	}

	for name, def := range stringDefaults {
		if !f.HasColumn(name) {
			col := make([]string, f.Rows())
			for i := range col {
				col[i] = def
			}
			f.SetStr(name, col)
			log.Printf("[feature] added missing essential column %q with default %q", name, def)
			continue
		}
		if !f.IsNumeric(name) {
			col := f.Str(name)
			for i, s := range col {
				s = strings.ToUpper(strings.TrimSpace(s))
				if s == "" {
					s = def
				}
				col[i] = s
			}
		}
	}

	return nil
}

func parseFloatOr(s string, def float64) float64 {
	var f float64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &f); err != nil {
		return def
	}
	return f
}

// positionOf 返回第 i 行的小写位置（缺失时用管道自身的位置）
func positionOf(f *Frame, i int, fallback string) string {
	col := f.Str("position")
	if col == nil || i >= len(col) || col[i] == "" {
		return fallback
	}
	return strings.ToLower(col[i])
}

// divisionOf 返回第 i 行的大写档位（缺失时 D3）
func divisionOf(f *Frame, i int) string {
	col := f.Str("division")
	if col == nil || i >= len(col) || col[i] == "" {
		return DefaultDivision
	}
	return strings.ToUpper(col[i])
}
