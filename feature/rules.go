package feature

import (
	"log"
	"math"

	"github.com/rushteam/scoutkit/pkg/dsl"
)

// TierRule 某位置某档位的规则评分门槛。
// 产量门槛 qb 用 senior_ypg、rb 用 ypg、wr 用 rec_ypg。
type TierRule struct {
	Base        float64
	YPGMin      float64
	HeightMin   float64
	HeightMax   float64
	WeightMin   float64
	WeightMax   float64
	FortyMin    float64
	FortyMax    float64
	VerticalMin float64
	VerticalMax float64
	BroadMin    float64
	ShuttleMax  float64
}

// namedTier 带档位名的规则条目，按 Base 降序排列（先试高档）
type namedTier struct {
	Name string
	Rule TierRule
}

// scoringTiers 各位置的规则评分档位表。999 表示该方向不设上限。
var scoringTiers = map[string][]namedTier{
	"qb": {
		{"Power 5", TierRule{90, 250, 74, 78, 200, 240, 4.6, 4.9, 30, 34, 108, 4.5}},
		{"FCS", TierRule{70, 200, 72, 76, 190, 220, 4.7, 5.0, 28, 32, 102, 4.6}},
		{"D2", TierRule{50, 150, 71, 74, 180, 210, 4.8, 5.1, 26, 30, 96, 4.7}},
		{"D3/NAIA", TierRule{30, 0, 70, 999, 170, 999, 4.9, 999, 24, 999, 90, 999}},
	},
	"rb": {
		{"Power 5", TierRule{90, 150, 69, 74, 190, 230, 4.2, 4.4, 34, 36, 120, 4.2}},
		{"FCS", TierRule{70, 120, 68, 73, 180, 220, 4.3, 4.5, 32, 34, 110, 4.3}},
		{"D2", TierRule{50, 90, 67, 72, 170, 210, 4.4, 4.6, 31, 33, 100, 4.4}},
		{"D3/NAIA", TierRule{30, 0, 66, 999, 160, 999, 4.5, 4.7, 30, 32, 90, 4.5}},
	},
	"wr": {
		{"Power 5", TierRule{90, 100, 71, 75, 180, 210, 4.4, 4.6, 34, 36, 120, 4.3}},
		{"FCS", TierRule{70, 80, 70, 74, 170, 200, 4.5, 4.7, 32, 35, 110, 4.4}},
		{"D2", TierRule{50, 60, 69, 73, 165, 195, 4.6, 4.8, 30, 33, 100, 4.5}},
		{"D3/NAIA", TierRule{30, 0, 68, 999, 160, 999, 4.7, 5.0, 28, 31, 90, 4.6}},
	},
}

// BonusRule 是可配置的加分规则：CEL 表达式命中时加 Points 分。
// 表达式针对一行工程特征求值（变量 row 与 position，见 pkg/dsl）。
type BonusRule struct {
	Name   string  `yaml:"name" json:"name"`
	Expr   string  `yaml:"expr" json:"expr"`
	Points float64 `yaml:"points" json:"points"`
}

// tierCheckThreshold 档位判定需要命中的检查项比例
const tierCheckThreshold = 0.6

// computeRuleScores 为工作集每一行计算规则分，追加 rule_score 数值列与
// rule_score_tier 字符串列（后者在导出矩阵前会被过滤掉，仅供解释用途）。
//
// score = clip((base·0.6 + (perf+vers+ath)·0.4) · (1 + bonus/100) · multiplier, 0, 100)
func computeRuleScores(f *Frame, position string, bonusRules []BonusRule) {
	n := f.Rows()
	scores := make([]float64, n)
	tiers := make([]string, n)

	for i := 0; i < n; i++ {
		pos := positionOf(f, i, position)
		if _, ok := scoringTiers[pos]; !ok {
			pos = position
		}

		base, tierName := assignTierBase(f, i, pos)
		bonus := computeBonus(f, i, pos, bonusRules)
		perf := computePerformance(f, i, pos)
		vers := computeVersatility(f, i, pos)
		ath := computeAthleticism(f, i)
		multiplier := f.ValueOr(i, "multiplier", 1.0)

		score := (base*0.6 + (perf+vers+ath)*0.4) * (1 + bonus/100) * multiplier
		scores[i] = clip(score, 0, 100)
		tiers[i] = tierName
	}

	f.SetNum("rule_score", scores)
	f.SetStr("rule_score_tier", tiers)
}

// assignTierBase 自上而下匹配档位：≥60% 检查项命中即归入该档。
// 全部落空时兜底 D3/NAIA。
func assignTierBase(f *Frame, i int, position string) (float64, string) {
	tiers, ok := scoringTiers[position]
	if !ok {
		tiers = scoringTiers["qb"]
	}

	for _, t := range tiers {
		r := t.Rule
		var ypg float64
		switch position {
		case "wr":
			ypg = f.ValueOr(i, "rec_ypg", 0)
		case "rb":
			ypg = f.ValueOr(i, "ypg", 0)
		default:
			ypg = f.ValueOr(i, "senior_ypg", 0)
		}

		height := f.ValueOr(i, "height_inches", 0)
		weight := f.ValueOr(i, "weight_lbs", 0)
		forty := f.ValueOr(i, "forty_yard_dash", 5.0)
		vertical := f.ValueOr(i, "vertical_jump", 0)

		checks := []bool{
			ypg >= r.YPGMin,
			r.HeightMin <= height && height <= r.HeightMax,
			r.WeightMin <= weight && weight <= r.WeightMax,
			r.FortyMin <= forty && forty <= r.FortyMax,
			// 垂直弹跳窗口各放宽 1 英寸，场地测量误差大
			r.VerticalMin-1 <= vertical && vertical <= r.VerticalMax+1,
			f.ValueOr(i, "shuttle", 5.0) <= r.ShuttleMax,
			f.ValueOr(i, "broad_jump", 0) >= r.BroadMin,
		}
		hit := 0
		for _, c := range checks {
			if c {
				hit++
			}
		}
		if float64(hit) >= float64(len(checks))*tierCheckThreshold {
			return r.Base, t.Name
		}
	}
	last := tiers[len(tiers)-1]
	return last.Rule.Base, last.Name
}

// computePerformance 产量子分：统计产出的组内百分位加权，权重 0.35
func computePerformance(f *Frame, i int, position string) float64 {
	switch position {
	case "qb":
		ypgPct := columnPercentile(f, i, "senior_ypg")
		tdPct := columnPercentile(f, i, "senior_tds")
		compPct := columnPercentile(f, i, "senior_comp_pct")
		trajPct := columnPercentile(f, i, "trajectory")
		return (0.4*ypgPct + 0.3*tdPct + 0.2*compPct + 0.1*trajPct + 0.1*f.ValueOr(i, "trajectory_z", 0)) * 0.35
	case "rb":
		ypgPct := columnPercentile(f, i, "ypg")
		tdPct := columnPercentile(f, i, "td_game")
		ypcPct := columnPercentile(f, i, "senior_ypc")
		recPct := columnPercentile(f, i, "senior_rec")
		return (0.4*ypgPct + 0.3*tdPct + 0.2*ypcPct + 0.1*recPct + 0.1*f.ValueOr(i, "eff_ratio", 0)) * 0.35
	case "wr":
		ypgPct := columnPercentile(f, i, "rec_ypg")
		tdPct := columnPercentile(f, i, "tds_game")
		ypcPct := columnPercentile(f, i, "senior_avg")
		recPct := columnPercentile(f, i, "senior_rec")
		return (0.4*ypgPct + 0.3*tdPct + 0.2*ypcPct + 0.1*recPct + 0.1*f.ValueOr(i, "eff_ratio", 0)) * 0.35
	}
	return 0
}

// computeVersatility 全面性子分：多维技术指标的组内百分位加权
func computeVersatility(f *Frame, i int, position string) float64 {
	switch position {
	case "qb":
		compPct := columnPercentile(f, i, "senior_comp_pct")
		speedPct := 100 - columnPercentileDefault(f, i, "forty_yard_dash", 5.0)
		return (0.5*compPct + 0.5*speedPct) * 0.35
	case "rb":
		ypcPct := columnPercentile(f, i, "senior_ypc")
		recPct := columnPercentile(f, i, "senior_rec")
		apPct := columnPercentile(f, i, "all_purpose_game")
		return (0.4*ypcPct + 0.3*recPct + 0.3*apPct) * 0.4
	case "wr":
		ypcPct := columnPercentile(f, i, "senior_avg")
		recPct := columnPercentile(f, i, "senior_rec")
		rushPct := columnPercentile(f, i, "senior_rush_yds")
		return (0.5*ypcPct + 0.3*recPct + 0.2*rushPct) * 0.4
	}
	return 0
}

// computeAthleticism 运动能力子分：四项体测的组内百分位加权（40 码与折返跑取反向）
func computeAthleticism(f *Frame, i int) float64 {
	fPct := 100 - columnPercentileDefault(f, i, "forty_yard_dash", 5.0)
	vPct := columnPercentile(f, i, "vertical_jump")
	sPct := 100 - columnPercentileDefault(f, i, "shuttle", 5.0)
	bPct := columnPercentile(f, i, "broad_jump")
	return (0.3*fPct + 0.3*vPct + 0.2*sPct + 0.2*bPct) * 0.25
}

// computeBonus 加分电池：
//   - 40 码低于位置阈值（qb 4.7，其余 4.5）：+10
//   - 折返跑低于位置阈值（qb 4.4，其余 4.3）：+5
//   - trajectory_z > 1：+5
//   - 人才大州：+3
//   - 篮球垂直弹跳 > 35：+4
//   - ≥3 个训练分位特征进入前 10%：+7
//   - 配置的 CEL 规则命中：+Points；表达式失败视为不命中
func computeBonus(f *Frame, i int, position string, bonusRules []BonusRule) float64 {
	bonus := 0.0
	th40 := 4.5
	thSh := 4.3
	if position == "qb" {
		th40 = 4.7
		thSh = 4.4
	}

	if v, ok := f.Value(i, "forty_yard_dash"); ok && v < th40 {
		bonus += 10
	}
	if v, ok := f.Value(i, "shuttle"); ok && v < thSh {
		bonus += 5
	}
	if f.ValueOr(i, "trajectory_z", 0) > 1 {
		bonus += 5
	}
	if f.ValueOr(i, "is_strong_state", 0) > 0 {
		bonus += 3
	}
	if f.ValueOr(i, "hoops_vert", 0) > 35 {
		bonus += 4
	}

	topDecile := 0
	for _, name := range f.Columns() {
		if len(name) > 7 && name[len(name)-7:] == "_pctile" {
			if f.ValueOr(i, name, 0) > 90 {
				topDecile++
			}
		}
	}
	if topDecile >= 3 {
		bonus += 7
	}

	if len(bonusRules) > 0 {
		eval := dsl.NewEval(f.NumRow(i), position)
		for _, rule := range bonusRules {
			hit, err := eval.Evaluate(rule.Expr)
			if err != nil {
				log.Printf("[feature] bonus rule %q failed: %v", rule.Name, err)
				continue
			}
			if hit {
				bonus += rule.Points
			}
		}
	}

	return bonus
}

// columnPercentile 第 i 行的值在整列分布中的百分位（缺失值按 0 参与排名）
func columnPercentile(f *Frame, i int, name string) float64 {
	return columnPercentileDefault(f, i, name, 0)
}

func columnPercentileDefault(f *Frame, i int, name string, def float64) float64 {
	col := f.Num(name)
	if col == nil {
		return 0
	}
	v := col[i]
	if math.IsNaN(v) {
		v = def
	}
	return PercentileOfScore(col, v)
}
