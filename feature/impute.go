package feature

import (
	"log"
	"math"
	"math/rand"
)

// imputeCombine 对四项体测指标做基于档位基准区间的插补。
//
// 每项指标：
//   - 列缺失时整列按缺失处理，并新建 <metric>_imputed 标志列（1=插补）
//   - 缺失值按该行档位的区间 (min,max) 采样 N(mid, range/4)，
//     裁剪到 [0.9·min, 1.1·max]；未知档位回退 D3 区间
//   - 随机源由固定种子驱动，同一输入插补结果可复现
func imputeCombine(f *Frame, position string, seed int64) {
	for _, metric := range CombineMetrics {
		if !f.HasColumn(metric) {
			f.FillNum(metric, math.NaN())
			log.Printf("[feature] created missing combine column %q", metric)
		} else if !f.IsNumeric(metric) {
			// 混入文本的体测列整列视为缺失
			f.FillNum(metric, math.NaN())
			log.Printf("[feature] combine column %q was non-numeric, treating as missing", metric)
		}

		col := f.Num(metric)
		flags := make([]float64, f.Rows())
		missing := 0
		for i, v := range col {
			if math.IsNaN(v) {
				flags[i] = 1
				missing++
			}
		}
		f.SetNum(metric+"_imputed", flags)

		if missing == 0 {
			continue
		}

		// 按档位分组采样，每组独立的固定种子保证组内顺序无关联
		byDivision := make(map[string][]int)
		for i, v := range col {
			if math.IsNaN(v) {
				div := divisionOf(f, i)
				byDivision[div] = append(byDivision[div], i)
			}
		}
		for div, idxs := range byDivision {
			r := BenchmarkRange(position, div, metric)
			mean := (r.Min + r.Max) / 2
			std := (r.Max - r.Min) / 4
			rng := rand.New(rand.NewSource(seed))
			for _, i := range idxs {
				v := rng.NormFloat64()*std + mean
				col[i] = clip(v, r.Min*0.9, r.Max*1.1)
			}
		}
	}
}

// imputedFlagCount 返回第 i 行被插补的体测指标数
func imputedFlagCount(f *Frame, i int) int {
	count := 0
	for _, metric := range CombineMetrics {
		if f.ValueOr(i, metric+"_imputed", 0) > 0 {
			count++
		}
	}
	return count
}
