package feature

import (
	"math"
	"sort"
)

// dropNaN 返回去掉 NaN 后的副本
func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Percentile 计算 p ∈ [0,100] 分位数（线性插值，样本需升序）。
// 空样本返回 0。
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	index := p / 100 * float64(n-1)
	lower := int(index)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// PercentileOfScore 计算 value 在样本中的百分位排名（0-100，mid-rank 规则：
// 严格小于与小于等于两个比例的平均）。样本无需有序；NaN 被忽略。
// 空样本返回 0。
func PercentileOfScore(values []float64, value float64) float64 {
	if math.IsNaN(value) {
		value = 0
	}
	var n, less, lessEq int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		n++
		if v < value {
			less++
		}
		if v <= value {
			lessEq++
		}
	}
	if n == 0 {
		return 0
	}
	strict := 100 * float64(less) / float64(n)
	weak := 100 * float64(lessEq) / float64(n)
	return (strict + weak) / 2
}

// TrainingPercentile 把 x 映射到训练分布上的分位特征值：
// 先求训练样本中 ≤ x 的比例 q，再取训练分布的 q 分位数。
// x 为 NaN 时返回 50（中位兜底）。train 需升序。
func TrainingPercentile(train []float64, x float64) float64 {
	if math.IsNaN(x) || len(train) == 0 {
		return 50
	}
	le := sort.SearchFloat64s(train, x)
	// SearchFloat64s 返回第一个 >= x 的下标，再吸收相等值
	for le < len(train) && train[le] <= x {
		le++
	}
	q := 100 * float64(le) / float64(len(train))
	return Percentile(train, q)
}

// meanStd 返回样本的均值与总体标准差（NaN 忽略）
func meanStd(values []float64) (mean, std float64, n int) {
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		mean += v
		n++
	}
	if n == 0 {
		return 0, 0, 0
	}
	mean /= float64(n)
	var variance float64
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		variance += (v - mean) * (v - mean)
	}
	// 与训练端一致使用样本标准差（n-1）
	if n > 1 {
		std = math.Sqrt(variance / float64(n-1))
	}
	return mean, std, n
}

// clip 把 v 限制在 [lo, hi]；NaN 原样返回
func clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
