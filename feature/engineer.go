package feature

import (
	"log"
	"math"
)

const eps = 1e-6

// engineerFrame 执行全部特征工程步骤（fit 与 transform 共用同一条路径，
// 保证训练/推理一致性）：
//
//  1. 体测插补（imputeCombine）
//  2. 州人才评分 state embedding
//  3. 比赛场次推导
//  4. 分位置场均数据
//  5. 成长曲线 trajectory
//  6. 核心工程特征（bmi / eff_ratio / ath_power / 交互项）
//  7. 分位置交互特征
//  8. 体测置信度
//  9. 位置内 trajectory z 分 + 位置 one-hot
//
// 最后做一次值级去重，防止上游数据把同一列喂两遍。
func engineerFrame(f *Frame, position string, cfg *Config) {
	imputeCombine(f, position, cfg.Seed)
	addStateEmbeddings(f)
	deriveGames(f)
	addPerGameStats(f)
	addTrajectory(f)
	addCoreFeatures(f)
	addPositionFeatures(f, position)
	addCombineConfidence(f, cfg.ConfidenceFloor)
	addTrajectoryZ(f)
	addPositionDummies(f)

	if dropped := f.DedupeValues(); len(dropped) > 0 {
		log.Printf("[feature] removed value-duplicate engineered columns: %v", dropped)
	}
}

// addStateEmbeddings 生成州人才密度评分与分层 one-hot。
// 已有 state_talent_score 时跳过（上游可能带入预计算值）。
func addStateEmbeddings(f *Frame) {
	if f.HasColumn("state_talent_score") {
		return
	}
	n := f.Rows()
	states := f.Str("state")
	score := make([]float64, n)
	tier1 := make([]float64, n)
	tier2 := make([]float64, n)
	tier3 := make([]float64, n)
	tier4 := make([]float64, n)
	strong := make([]float64, n)
	for i := 0; i < n; i++ {
		st := ""
		if states != nil {
			st = states[i]
		}
		s := StateTalentScore(st)
		score[i] = float64(s)
		switch s {
		case 4:
			tier1[i] = 1
			strong[i] = 1
		case 3:
			tier2[i] = 1
		case 2:
			tier3[i] = 1
		default:
			tier4[i] = 1
		}
	}
	f.SetNum("state_talent_score", score)
	f.SetNum("state_tier_1", tier1)
	f.SetNum("state_tier_2", tier2)
	f.SetNum("state_tier_3", tier3)
	f.SetNum("state_tier_4", tier4)
	f.SetNum("is_strong_state", strong)
}

// deriveGames 推导比赛场次：
//   - wr：senior_rec 作为场次近似（0 视为缺失），裁剪 8..15
//   - rb/qb：senior_yds / senior_ypg，裁剪 8..15
//   - 推导不出时保留默认 12
func deriveGames(f *Frame) {
	games := f.Num("games")
	if games == nil {
		f.FillNum("games", DefaultGames)
		games = f.Num("games")
	}

	rec := f.Num("senior_rec")
	yds := f.Num("senior_yds")
	ypg := f.Num("senior_ypg")

	for i := 0; i < f.Rows(); i++ {
		switch positionOf(f, i, "") {
		case "wr":
			if rec != nil {
				v := rec[i]
				if math.IsNaN(v) || v == 0 {
					v = DefaultGames
				}
				games[i] = clip(v, 8, 15)
			}
		case "rb", "qb":
			if yds != nil && ypg != nil {
				v := yds[i] / ypg[i]
				if math.IsNaN(v) || math.IsInf(v, 0) {
					v = DefaultGames
				}
				games[i] = clip(v, 8, 15)
			}
		}
	}
}

// addPerGameStats 生成分位置的场均数据列。
// wr 产出 rec_ypg/tds_game，rb/qb 产出 ypg/td_game；
// rb 的 all_purpose_game 合并地面与接球码数。
func addPerGameStats(f *Frame) {
	n := f.Rows()
	recYPG := make([]float64, n)
	ypg := make([]float64, n)
	tdsGame := make([]float64, n)
	tdGame := make([]float64, n)
	allPurpose := make([]float64, n)

	yds := f.Num("senior_yds")
	recYds := f.Num("senior_rec_yds")
	td := f.Num("senior_td")
	games := f.Num("games")

	for i := 0; i < n; i++ {
		g := DefaultGames
		if games != nil && !math.IsNaN(games[i]) && games[i] > 0 {
			g = games[i]
		}
		pos := positionOf(f, i, "")

		if yds != nil && !math.IsNaN(yds[i]) {
			switch pos {
			case "wr":
				recYPG[i] = yds[i] / g
			case "rb", "qb":
				ypg[i] = yds[i] / g
			}
			if pos == "rb" {
				total := yds[i]
				if recYds != nil && !math.IsNaN(recYds[i]) {
					total += recYds[i]
				}
				allPurpose[i] = total / g
			}
		}
		if td != nil && !math.IsNaN(td[i]) {
			switch pos {
			case "wr":
				tdsGame[i] = td[i] / g
			case "rb", "qb":
				tdGame[i] = td[i] / g
			}
		}
	}

	f.SetNum("rec_ypg", recYPG)
	f.SetNum("ypg", ypg)
	f.SetNum("tds_game", tdsGame)
	f.SetNum("td_game", tdGame)
	f.SetNum("all_purpose_game", allPurpose)
}

// addTrajectory 成长曲线：高三场均相对高二场均的增量（不为负）
func addTrajectory(f *Frame) {
	n := f.Rows()
	traj := make([]float64, n)
	senior := f.Num("senior_ypg")
	junior := f.Num("junior_ypg")
	if senior != nil && junior != nil {
		for i := 0; i < n; i++ {
			d := senior[i] - junior[i]
			if math.IsNaN(d) || d < 0 {
				d = 0
			}
			traj[i] = d
		}
	}
	f.SetNum("trajectory", traj)
}

// primaryYPG 选主产量列：senior_ypg → ypg → rec_ypg → 0
func primaryYPG(f *Frame, i int) float64 {
	for _, name := range []string{"senior_ypg", "ypg", "rec_ypg"} {
		if v, ok := f.Value(i, name); ok {
			return v
		}
	}
	return 0
}

// addCoreFeatures 核心工程特征与交互项
func addCoreFeatures(f *Frame) {
	n := f.Rows()
	bmi := make([]float64, n)
	effRatio := make([]float64, n)
	athPower := make([]float64, n)
	bmiYPG := make([]float64, n)
	heightTraj := make([]float64, n)
	stateEff := make([]float64, n)
	speedPower := make([]float64, n)

	for i := 0; i < n; i++ {
		h := f.ValueOr(i, "height_inches", DefaultHeightInches)
		w := f.ValueOr(i, "weight_lbs", DefaultWeightLbs)
		bmi[i] = w / (h * h) * 703
		effRatio[i] = f.ValueOr(i, "senior_tds", 0) / (f.ValueOr(i, "senior_ypg", 0) + eps)
		athPower[i] = f.ValueOr(i, "vertical_jump", 0) * f.ValueOr(i, "broad_jump", 0)
		bmiYPG[i] = bmi[i] * primaryYPG(f, i)
		heightTraj[i] = h * f.ValueOr(i, "trajectory", 0)
		stateEff[i] = f.ValueOr(i, "state_talent_score", 1) * effRatio[i]
		speedPower[i] = athPower[i] / (f.ValueOr(i, "forty_yard_dash", 0) + eps)
	}

	f.SetNum("bmi", bmi)
	f.SetNum("eff_ratio", effRatio)
	f.SetNum("ath_power", athPower)
	f.SetNum("bmi_ypg", bmiYPG)
	f.SetNum("height_traj", heightTraj)
	f.SetNum("state_eff", stateEff)
	f.SetNum("speed_power_ratio", speedPower)
}

// addPositionFeatures 分位置交互特征（按管道自身的位置展开）：
//   - qb：comp_ypg（命中率×产量）、height_comp（身高×命中率）
//   - rb：ypc_speed（每攻码数×速度）、weight_ypc（体重×每攻码数）
//   - wr：catch_radius（身高×垂直弹跳）、speed_yac（速度×场均接球码数）
func addPositionFeatures(f *Frame, position string) {
	n := f.Rows()
	switch position {
	case "qb":
		compYPG := make([]float64, n)
		heightComp := make([]float64, n)
		for i := 0; i < n; i++ {
			comp := f.ValueOr(i, "senior_comp_pct", 60)
			compYPG[i] = comp * primaryYPG(f, i) / 100
			heightComp[i] = f.ValueOr(i, "height_inches", DefaultHeightInches) * comp
		}
		f.SetNum("comp_ypg", compYPG)
		f.SetNum("height_comp", heightComp)
	case "rb":
		ypcSpeed := make([]float64, n)
		weightYPC := make([]float64, n)
		for i := 0; i < n; i++ {
			ypc := f.ValueOr(i, "senior_ypc", 0)
			ypcSpeed[i] = ypc * (5.0 - f.ValueOr(i, "forty_yard_dash", 4.8))
			weightYPC[i] = f.ValueOr(i, "weight_lbs", DefaultWeightLbs) * ypc
		}
		f.SetNum("ypc_speed", ypcSpeed)
		f.SetNum("weight_ypc", weightYPC)
	case "wr":
		catchRadius := make([]float64, n)
		speedYAC := make([]float64, n)
		for i := 0; i < n; i++ {
			catchRadius[i] = f.ValueOr(i, "height_inches", DefaultHeightInches) * f.ValueOr(i, "vertical_jump", 0)
			speedYAC[i] = (5.0 - f.ValueOr(i, "forty_yard_dash", 4.8)) * f.ValueOr(i, "senior_avg", 0)
		}
		f.SetNum("catch_radius", catchRadius)
		f.SetNum("speed_yac", speedYAC)
	}
}

// addCombineConfidence 体测置信度：1 - 插补比例，下限 floor。
// 全部四项实测 = 1.0，全部插补 = floor。
func addCombineConfidence(f *Frame, floor float64) {
	n := f.Rows()
	conf := make([]float64, n)
	for i := 0; i < n; i++ {
		c := 1.0 - float64(imputedFlagCount(f, i))/float64(len(CombineMetrics))
		if c < floor {
			c = floor
		}
		conf[i] = c
	}
	f.SetNum("combine_confidence", conf)
}

// addTrajectoryZ 位置组内的 trajectory z 分（组内样本 ≤1 或方差为 0 时取 0）
func addTrajectoryZ(f *Frame) {
	n := f.Rows()
	z := make([]float64, n)
	traj := f.Num("trajectory")
	if traj != nil {
		byPos := make(map[string][]int)
		for i := 0; i < n; i++ {
			pos := positionOf(f, i, "")
			byPos[pos] = append(byPos[pos], i)
		}
		for _, idxs := range byPos {
			if len(idxs) <= 1 {
				continue
			}
			vals := make([]float64, 0, len(idxs))
			for _, i := range idxs {
				vals = append(vals, traj[i])
			}
			mean, std, _ := meanStd(vals)
			if std <= 0 {
				continue
			}
			for _, i := range idxs {
				if !math.IsNaN(traj[i]) {
					z[i] = (traj[i] - mean) / std
				}
			}
		}
	}
	f.SetNum("trajectory_z", z)
}

// addPositionDummies 位置 one-hot（pos_qb / pos_rb / pos_wr）
func addPositionDummies(f *Frame) {
	n := f.Rows()
	dummies := map[string][]float64{
		"pos_qb": make([]float64, n),
		"pos_rb": make([]float64, n),
		"pos_wr": make([]float64, n),
	}
	for i := 0; i < n; i++ {
		name := "pos_" + positionOf(f, i, "")
		if col, ok := dummies[name]; ok {
			col[i] = 1
		}
	}
	f.SetNum("pos_qb", dummies["pos_qb"])
	f.SetNum("pos_rb", dummies["pos_rb"])
	f.SetNum("pos_wr", dummies["pos_wr"])
}
