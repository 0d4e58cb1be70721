package feature

import (
	"encoding/json"
	"fmt"
)

// State 是管道的全部可持久化状态，对应 artifact 里的 preprocessor 段。
// Restore 后的管道与 fit 后的管道 transform 结果完全一致。
type State struct {
	// Position 管道绑定的位置
	Position string `json:"position"`
	// Fitted 是否已 fit
	Fitted bool `json:"fitted"`
	// FeatureNames 特征列序（fit 时锁定）
	FeatureNames []string `json:"feature_names"`
	// WinsorizationBounds 每个数值特征的 [p1, p99] 缩尾边界
	WinsorizationBounds map[string][2]float64 `json:"winsorization_bounds"`
	// TrainingStats 每个数值特征的升序训练样本（分位特征参照分布）
	TrainingStats map[string][]float64 `json:"training_stats"`
	// Config 管道配置
	Config Config `json:"config"`
}

// State 导出管道状态（深拷贝，调用方可安全序列化/修改）
func (p *Preprocessor) State() *State {
	s := &State{
		Position:            p.position,
		Fitted:              p.fitted,
		FeatureNames:        p.FeatureNames(),
		WinsorizationBounds: make(map[string][2]float64, len(p.winsorBounds)),
		TrainingStats:       make(map[string][]float64, len(p.trainingStats)),
		Config:              p.cfg,
	}
	for k, v := range p.winsorBounds {
		s.WinsorizationBounds[k] = v
	}
	for k, v := range p.trainingStats {
		vals := make([]float64, len(v))
		copy(vals, v)
		s.TrainingStats[k] = vals
	}
	return s
}

// Restore 从持久化状态重建管道
func Restore(s *State) (*Preprocessor, error) {
	if s == nil {
		return nil, fmt.Errorf("feature: nil state")
	}
	p := NewPreprocessor(s.Position, WithConfig(s.Config))
	p.fitted = s.Fitted
	p.featureNames = append([]string(nil), s.FeatureNames...)
	p.winsorBounds = make(map[string][2]float64, len(s.WinsorizationBounds))
	for k, v := range s.WinsorizationBounds {
		p.winsorBounds[k] = v
	}
	p.trainingStats = make(map[string][]float64, len(s.TrainingStats))
	for k, v := range s.TrainingStats {
		vals := make([]float64, len(v))
		copy(vals, v)
		p.trainingStats[k] = vals
	}
	return p, nil
}

// MarshalState 序列化管道状态为 JSON
func MarshalState(p *Preprocessor) ([]byte, error) {
	return json.Marshal(p.State())
}

// UnmarshalState 从 JSON 重建管道
func UnmarshalState(data []byte) (*Preprocessor, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("feature: parse pipeline state: %w", err)
	}
	return Restore(&s)
}
