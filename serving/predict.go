package serving

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/scoutkit/core"
	"github.com/rushteam/scoutkit/registry"
)

// Prediction 一次在线评估的结果
type Prediction struct {
	// PredictedClass 预测档位（0=D3 … 3=Power5）
	PredictedClass int `json:"predicted_class"`
	// PredictedDivision 预测档位名
	PredictedDivision string `json:"predicted_division"`
	// Probabilities 四个档位的概率（按类别序）
	Probabilities []float64 `json:"probabilities"`
	// RuleScore 规则评估分（0-100）
	RuleScore float64 `json:"rule_score"`
	// RuleTier 规则分对应的档位名
	RuleTier string `json:"rule_tier"`
	// ModelVersion 产生本结果的模型版本
	ModelVersion string `json:"model_version"`
	// Imputed 各体测指标是否被插补
	Imputed map[string]bool `json:"imputed"`
	// CombineConfidence 体测置信度（0-1，越低表示插补越多）
	CombineConfidence float64 `json:"combine_confidence"`
}

// Predict 对一批球员记录做在线评估，使用各自位置当前活跃的模型。
// position 为空时从每条记录的 position 列推断，允许混合位置的批次。
func (r *Registry) Predict(ctx context.Context, position string, records []core.Record) ([]Prediction, error) {
	if position == "" {
		return r.predictInferred(ctx, records)
	}
	artifact, err := r.Active(position)
	if err != nil {
		return nil, err
	}
	return r.predictWith(ctx, artifact, records)
}

// predictInferred 按每条记录的 position 列分组评估，结果保持输入顺序。
// 缺少 position 列的记录无法路由到模型，整批返回 DATA_VALIDATION。
func (r *Registry) predictInferred(ctx context.Context, records []core.Record) ([]Prediction, error) {
	groups := make(map[string][]int)
	for i, rec := range records {
		pos, ok := rec.String("position")
		pos = strings.ToLower(strings.TrimSpace(pos))
		if !ok || pos == "" {
			return nil, core.NewDomainError(core.ModuleServing, core.ErrorCodeDataValidation,
				fmt.Sprintf("serving: record %d has no position column, cannot infer a model", i))
		}
		groups[pos] = append(groups[pos], i)
	}

	out := make([]Prediction, len(records))
	for pos, idxs := range groups {
		artifact, err := r.Active(pos)
		if err != nil {
			return nil, err
		}
		batch := make([]core.Record, len(idxs))
		for j, i := range idxs {
			batch[j] = records[i]
		}
		preds, err := r.predictWith(ctx, artifact, batch)
		if err != nil {
			return nil, err
		}
		for j, i := range idxs {
			out[i] = preds[j]
		}
	}
	return out, nil
}

// PredictVersion 用指定历史版本做评估（对比实验用），不改变活跃模型。
func (r *Registry) PredictVersion(ctx context.Context, position, version string, records []core.Record) ([]Prediction, error) {
	artifact, err := r.source.Load(ctx, position, version)
	if err != nil {
		return nil, err
	}
	return r.predictWith(ctx, artifact, records)
}

func (r *Registry) predictWith(ctx context.Context, artifact *registry.Artifact, records []core.Record) ([]Prediction, error) {
	if r.enricher != nil {
		enriched := make([]core.Record, len(records))
		for i, rec := range records {
			enriched[i] = r.enricher.Enrich(ctx, rec)
		}
		records = enriched
	}

	matrix, explanations, err := artifact.Preprocessor.TransformExplain(records)
	if err != nil {
		return nil, err
	}

	predictions := make([]Prediction, matrix.NumRows())
	for i, row := range matrix.Rows {
		class, err := artifact.Classifier.Predict(ctx, row)
		if err != nil {
			return nil, err
		}
		probs, err := artifact.Classifier.PredictProba(ctx, row)
		if err != nil {
			return nil, err
		}
		predictions[i] = Prediction{
			PredictedClass:    class,
			PredictedDivision: core.ClassName(class),
			Probabilities:     probs,
			RuleScore:         explanations[i].RuleScore,
			RuleTier:          explanations[i].RuleTier,
			ModelVersion:      artifact.Version,
			Imputed:           explanations[i].Imputed,
			CombineConfidence: explanations[i].CombineConfidence,
		}
	}
	return predictions, nil
}
