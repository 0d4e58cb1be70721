package feature

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rushteam/scoutkit/core"
)

// Config 管道配置。零值不可用，请从 DefaultConfig 出发修改。
type Config struct {
	// MinTrainingRows fit 的最小样本数，低于该值直接拒绝
	// （单条演示数据喂进 fit 会得到退化的分布统计）
	MinTrainingRows int `yaml:"min_training_rows" json:"min_training_rows"`
	// WinsorizeLower / WinsorizeUpper 缩尾分位（百分数）
	WinsorizeLower float64 `yaml:"winsorize_lower" json:"winsorize_lower"`
	WinsorizeUpper float64 `yaml:"winsorize_upper" json:"winsorize_upper"`
	// Seed 插补随机源种子，保证插补可复现
	Seed int64 `yaml:"seed" json:"seed"`
	// ConfidenceFloor 体测置信度下限
	ConfidenceFloor float64 `yaml:"confidence_floor" json:"confidence_floor"`
	// BonusRules 可配置的 CEL 加分规则
	BonusRules []BonusRule `yaml:"bonus_rules" json:"bonus_rules"`
}

// DefaultConfig 返回默认管道配置
func DefaultConfig() Config {
	return Config{
		MinTrainingRows: 30,
		WinsorizeLower:  1,
		WinsorizeUpper:  99,
		Seed:            42,
		ConfidenceFloor: 0.1,
	}
}

// Preprocessor 是特征工程管道：fit 学习分布统计，transform 复用这些统计
// 把任意开放记录变成列序固定的数值矩阵。训练与推理走完全相同的工程步骤，
// 差异只在统计量的来源（fit 时现算，transform 时回放）。
type Preprocessor struct {
	position string
	cfg      Config

	fitted        bool
	featureNames  []string
	winsorBounds  map[string][2]float64
	trainingStats map[string][]float64 // 升序训练样本，分位特征的参照分布
}

// PreprocessorOption 管道构造选项
type PreprocessorOption func(*Preprocessor)

// WithConfig 覆盖默认配置
func WithConfig(cfg Config) PreprocessorOption {
	return func(p *Preprocessor) { p.cfg = cfg }
}

// WithBonusRules 设置 CEL 加分规则
func WithBonusRules(rules []BonusRule) PreprocessorOption {
	return func(p *Preprocessor) { p.cfg.BonusRules = rules }
}

// NewPreprocessor 创建指定位置的管道。position 取 qb / rb / wr。
func NewPreprocessor(position string, opts ...PreprocessorOption) *Preprocessor {
	p := &Preprocessor{
		position: strings.ToLower(strings.TrimSpace(position)),
		cfg:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Position 返回管道绑定的位置
func (p *Preprocessor) Position() string { return p.position }

// Fitted 返回管道是否已 fit
func (p *Preprocessor) Fitted() bool { return p.fitted }

// FeatureNames 返回 fit 时确定的特征列序（副本）
func (p *Preprocessor) FeatureNames() []string {
	out := make([]string, len(p.featureNames))
	copy(out, p.featureNames)
	return out
}

// Config 返回管道配置
func (p *Preprocessor) Config() Config { return p.cfg }

// Fit 在训练记录上学习分布统计并确定特征列序。
//
// 步骤：校验修复 → 特征工程 → 规则评分 → 逐数值列记录缩尾边界（p1/p99）
// 与训练分布 → 对训练数据本身缩尾并生成 <feature>_pctile 列 →
// 过滤非数值列，锁定列序。
//
// 样本数低于 MinTrainingRows 时返回 DATA_VALIDATION 错误。
func (p *Preprocessor) Fit(records []core.Record) error {
	if len(records) < p.cfg.MinTrainingRows {
		return core.NewDomainError(core.ModuleFeature, core.ErrorCodeDataValidation,
			fmt.Sprintf("feature: training data must have at least %d rows, got %d; never fit on demo or single-row data",
				p.cfg.MinTrainingRows, len(records)))
	}

	f := NewFrame(records)
	if err := validateFrame(f, p.position); err != nil {
		return err
	}
	engineerFrame(f, p.position, &p.cfg)
	computeRuleScores(f, p.position, p.cfg.BonusRules)

	// 逐数值列记录缩尾边界与训练分布
	p.winsorBounds = make(map[string][2]float64)
	p.trainingStats = make(map[string][]float64)
	for _, name := range f.Columns() {
		if !f.IsNumeric(name) || winsorExempt(name) {
			continue
		}
		values := dropNaN(f.Num(name))
		if len(values) == 0 {
			continue
		}
		sort.Float64s(values)
		p1 := Percentile(values, p.cfg.WinsorizeLower)
		p99 := Percentile(values, p.cfg.WinsorizeUpper)
		p.winsorBounds[name] = [2]float64{p1, p99}
		p.trainingStats[name] = values
	}

	p.applyWinsorization(f)

	if dropped := f.DedupeValues(); len(dropped) > 0 {
		log.Printf("[feature] removed duplicate columns after winsorization: %v", dropped)
	}

	// 过滤非数值列并锁定列序
	var names []string
	var dropped []string
	for _, name := range f.Columns() {
		if f.IsNumeric(name) {
			names = append(names, name)
		} else {
			dropped = append(dropped, name)
		}
	}
	if len(dropped) > 0 {
		log.Printf("[feature] excluding %d non-numeric columns from features: %v", len(dropped), dropped)
	}

	p.featureNames = names
	p.fitted = true
	return nil
}

// Transform 用 fit 时的统计把记录变成特征矩阵。
// 列序与 fit 时严格一致：未知列丢弃，缺失列合成默认值
// （_pctile → 50，pos_* / state_tier* → 0，其余 → 0）。
//
// 未 fit 时返回 MODEL_TRAINING 错误。
func (p *Preprocessor) Transform(records []core.Record) (*core.FeatureMatrix, error) {
	if !p.fitted {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeModelTraining,
			"feature: preprocessor must be fitted before transform")
	}

	f, err := p.transformFrame(records)
	if err != nil {
		return nil, err
	}

	// 合成缺失列，丢弃未知列，按训练列序导出
	for _, name := range p.featureNames {
		if f.HasColumn(name) && f.IsNumeric(name) {
			continue
		}
		f.FillNum(name, syntheticDefault(name))
		log.Printf("[feature] added missing feature %q with default value", name)
	}

	return f.Matrix(p.featureNames), nil
}

// TransformExplain 与 Transform 相同，但额外返回每行的解释信息
// （规则分档位、插补标志、体测置信度），供 serving 层组装响应。
func (p *Preprocessor) TransformExplain(records []core.Record) (*core.FeatureMatrix, []Explanation, error) {
	if !p.fitted {
		return nil, nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeModelTraining,
			"feature: preprocessor must be fitted before transform")
	}

	f, err := p.transformFrame(records)
	if err != nil {
		return nil, nil, err
	}

	explanations := make([]Explanation, f.Rows())
	tiers := f.Str("rule_score_tier")
	for i := 0; i < f.Rows(); i++ {
		ex := Explanation{
			RuleScore:         f.ValueOr(i, "rule_score", 0),
			CombineConfidence: f.ValueOr(i, "combine_confidence", 1),
			Imputed:           make(map[string]bool, len(CombineMetrics)),
		}
		if tiers != nil {
			ex.RuleTier = tiers[i]
		}
		for _, metric := range CombineMetrics {
			ex.Imputed[metric] = f.ValueOr(i, metric+"_imputed", 0) > 0
		}
		explanations[i] = ex
	}

	for _, name := range p.featureNames {
		if f.HasColumn(name) && f.IsNumeric(name) {
			continue
		}
		f.FillNum(name, syntheticDefault(name))
		log.Printf("[feature] added missing feature %q with default value", name)
	}

	return f.Matrix(p.featureNames), explanations, nil
}

// Explanation 单行变换的解释信息
type Explanation struct {
	// RuleScore 规则分（0-100）
	RuleScore float64
	// RuleTier 规则分对应的档位名
	RuleTier string
	// Imputed 各体测指标是否被插补
	Imputed map[string]bool
	// CombineConfidence 体测置信度
	CombineConfidence float64
}

// transformFrame 推理路径的共同前半段：校验 → 工程 → 规则分 → 缩尾/分位特征
func (p *Preprocessor) transformFrame(records []core.Record) (*Frame, error) {
	f := NewFrame(records)
	if err := validateFrame(f, p.position); err != nil {
		return nil, err
	}
	engineerFrame(f, p.position, &p.cfg)
	computeRuleScores(f, p.position, p.cfg.BonusRules)
	p.applyWinsorization(f)
	if dropped := f.DedupeValues(); len(dropped) > 0 {
		log.Printf("[feature] removed duplicate columns after winsorization: %v", dropped)
	}
	return f, nil
}

// applyWinsorization 按训练边界缩尾并生成 <feature>_pctile 分位特征。
// 分位特征以训练分布为参照，缺失值映射到 50。
func (p *Preprocessor) applyWinsorization(f *Frame) {
	// 列序快照：生成 _pctile 列时不重复处理
	names := f.Columns()
	for _, name := range names {
		bounds, ok := p.winsorBounds[name]
		if !ok || !f.IsNumeric(name) {
			continue
		}
		col := f.Num(name)
		for i, v := range col {
			col[i] = clip(v, bounds[0], bounds[1])
		}

		train, ok := p.trainingStats[name]
		if !ok {
			continue
		}
		pctile := make([]float64, len(col))
		for i, v := range col {
			pctile[i] = TrainingPercentile(train, v)
		}
		f.SetNum(name+"_pctile", pctile)
	}
}

// winsorExempt 指示列与置信度列不参与缩尾。它们的取值域由构造保证；
// 若训练集里某个取值从未出现（比如体测从未缺失，标志列全 0），
// 缩尾边界会退化成一个点，把推理时的真实标志裁掉。
func winsorExempt(name string) bool {
	return strings.HasSuffix(name, "_imputed") ||
		name == "combine_confidence" ||
		name == "is_strong_state" ||
		strings.HasPrefix(name, "pos_") ||
		strings.HasPrefix(name, "state_tier")
}

// syntheticDefault 缺失特征列的合成默认值
func syntheticDefault(name string) float64 {
	if strings.Contains(name, "pctile") {
		return 50
	}
	if strings.HasPrefix(name, "pos_") || strings.HasPrefix(name, "state_tier") {
		return 0
	}
	return 0
}
