package feature

// CombineMetrics 四项体测指标，插补与置信度计算共用
var CombineMetrics = []string{"forty_yard_dash", "vertical_jump", "shuttle", "broad_jump"}

// BenchRange 某位置×档位下单项体测指标的合理区间
type BenchRange struct {
	Min float64
	Max float64
}

// combineBenchmarks 按 位置 → 档位 → 指标 给出体测区间，用于缺失值插补。
// 区间来自历年各档位签约球员的体测分布。
// 未知档位回退到 D3 行。
var combineBenchmarks = map[string]map[string]map[string]BenchRange{
	"qb": {
		"POWER 5": {"forty_yard_dash": {4.6, 4.9}, "vertical_jump": {30, 34}, "shuttle": {4.3, 4.6}, "broad_jump": {108, 118}},
		"FCS":     {"forty_yard_dash": {4.7, 5.0}, "vertical_jump": {28, 32}, "shuttle": {4.4, 4.7}, "broad_jump": {102, 112}},
		"D2":      {"forty_yard_dash": {4.8, 5.1}, "vertical_jump": {26, 30}, "shuttle": {4.5, 4.8}, "broad_jump": {96, 106}},
		"D3":      {"forty_yard_dash": {4.9, 5.3}, "vertical_jump": {24, 28}, "shuttle": {4.6, 4.9}, "broad_jump": {90, 100}},
		"NAIA":    {"forty_yard_dash": {4.8, 5.2}, "vertical_jump": {25, 29}, "shuttle": {4.5, 4.8}, "broad_jump": {92, 102}},
	},
	"rb": {
		"POWER 5": {"forty_yard_dash": {4.2, 4.5}, "vertical_jump": {34, 38}, "shuttle": {4.0, 4.3}, "broad_jump": {120, 130}},
		"FCS":     {"forty_yard_dash": {4.3, 4.6}, "vertical_jump": {32, 36}, "shuttle": {4.1, 4.4}, "broad_jump": {110, 120}},
		"D2":      {"forty_yard_dash": {4.4, 4.7}, "vertical_jump": {30, 34}, "shuttle": {4.2, 4.5}, "broad_jump": {100, 110}},
		"D3":      {"forty_yard_dash": {4.5, 4.8}, "vertical_jump": {28, 32}, "shuttle": {4.3, 4.6}, "broad_jump": {95, 105}},
		"NAIA":    {"forty_yard_dash": {4.4, 4.7}, "vertical_jump": {29, 33}, "shuttle": {4.2, 4.5}, "broad_jump": {98, 108}},
	},
	"wr": {
		"POWER 5": {"forty_yard_dash": {4.4, 4.7}, "vertical_jump": {34, 38}, "shuttle": {4.1, 4.4}, "broad_jump": {120, 130}},
		"FCS":     {"forty_yard_dash": {4.5, 4.8}, "vertical_jump": {33, 37}, "shuttle": {4.2, 4.5}, "broad_jump": {110, 120}},
		"D2":      {"forty_yard_dash": {4.6, 4.9}, "vertical_jump": {31, 35}, "shuttle": {4.3, 4.6}, "broad_jump": {100, 110}},
		"D3":      {"forty_yard_dash": {4.7, 5.0}, "vertical_jump": {29, 33}, "shuttle": {4.4, 4.7}, "broad_jump": {95, 105}},
		"NAIA":    {"forty_yard_dash": {4.6, 4.9}, "vertical_jump": {30, 34}, "shuttle": {4.3, 4.6}, "broad_jump": {98, 108}},
	},
}

// BenchmarkRange 返回某位置×档位×指标的体测区间。
// 未知位置回退到 qb，未知档位回退到 D3。
func BenchmarkRange(position, division, metric string) BenchRange {
	pos, ok := combineBenchmarks[position]
	if !ok {
		pos = combineBenchmarks["qb"]
	}
	if division == "POWER5" {
		division = "POWER 5"
	}
	div, ok := pos[division]
	if !ok {
		div = pos["D3"]
	}
	return div[metric]
}

// stateTalentMap 州 → 人才密度评分（4 精英 / 3 强 / 2 中等 / 其余 1）
var stateTalentMap = map[string]int{
	"TX": 4, "FL": 4, "CA": 4, "GA": 4,
	"OH": 3, "PA": 3, "NC": 3, "VA": 3, "MI": 3, "IL": 3, "LA": 3, "AL": 3,
	"TN": 3, "SC": 3, "AZ": 3, "NJ": 3, "MD": 3,
	"IN": 2, "MO": 2, "WI": 2, "MN": 2, "IA": 2, "KY": 2, "OK": 2, "AR": 2,
	"MS": 2, "KS": 2, "CO": 2, "OR": 2, "WA": 2, "CT": 2, "NV": 2, "UT": 2,
}

// StateTalentScore 返回州的人才密度评分，未知州返回 1
func StateTalentScore(state string) int {
	if score, ok := stateTalentMap[state]; ok {
		return score
	}
	return 1
}
