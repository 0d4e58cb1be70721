// Package training 把数据集、特征管道、分类器和版本仓库串成一次完整训练。
//
// 流程：标签提取 → 管道 fit → 特征矩阵 → 留出集评估 → 全量重训 →
// registry.Save 落盘新版本。serving 的重训工作池直接复用 Train。
package training

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/rushteam/scoutkit/core"
	"github.com/rushteam/scoutkit/feature"
	"github.com/rushteam/scoutkit/model"
	"github.com/rushteam/scoutkit/registry"
)

// Options 一次训练的配置
type Options struct {
	// Version 新版本号（语义化，必填）
	Version string

	// Notes 版本备注（可选）
	Notes string

	// Changelog 本版本变更列表（可选，默认一条通用记录）
	Changelog []string

	// HoldoutFraction 留出集比例，(0,1) 之外时使用默认 0.2
	HoldoutFraction float64

	// Seed 留出集切分的随机种子，0 时使用 42
	Seed int64

	// PipelineOptions 透传给特征管道的选项
	PipelineOptions []feature.PreprocessorOption

	// NewClassifier 分类器构造函数，nil 时使用质心分类器
	NewClassifier func() core.TrainableClassifier
}

// Result 一次训练的产出
type Result struct {
	// Artifact 可部署的模型 artifact
	Artifact *registry.Artifact

	// Metadata 元数据（已由 registry.Save 补全版本与日期）
	Metadata *registry.Metadata

	// Accuracy 留出集准确率（样本太少没切留出集时为 0）
	Accuracy float64
}

// Train 用数据集训练一个位置的完整管道并保存为新版本。
//
// 标签取每条记录的 division 列，未知档位告警后按 D3 处理。
// 训练样本不足、版本冲突等错误原样透传（DATA_VALIDATION / VERSION_EXISTS）。
func Train(ctx context.Context, reg *registry.Registry, position string, records []core.Record, opts Options) (*Result, error) {
	if opts.Version == "" {
		return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeVersionInvalid,
			"training: version is required")
	}

	labels := make([]int, len(records))
	for i, rec := range records {
		division, _ := rec.String("division")
		class, known := core.DivisionClass(division)
		if !known {
			log.Printf("[training] record %d has unknown division %q, treating as %s",
				i, division, core.ClassName(core.ClassD3))
		}
		labels[i] = class
	}

	pre := feature.NewPreprocessor(position, opts.PipelineOptions...)
	if err := pre.Fit(records); err != nil {
		return nil, err
	}
	matrix, err := pre.Transform(records)
	if err != nil {
		return nil, err
	}

	newClassifier := opts.NewClassifier
	if newClassifier == nil {
		newClassifier = func() core.TrainableClassifier { return model.NewCentroidClassifier() }
	}
	classifier := newClassifier()

	accuracy, err := evaluateHoldout(ctx, newClassifier, matrix, labels, opts)
	if err != nil {
		return nil, err
	}

	// 全量重训得到最终模型
	if err := classifier.Fit(ctx, matrix, labels); err != nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeModelTraining,
			fmt.Sprintf("training: classifier fit failed: %v", err))
	}

	artifact := &registry.Artifact{
		Position:     position,
		Version:      opts.Version,
		Preprocessor: pre,
		Classifier:   classifier,
	}
	meta := &registry.Metadata{
		TrainingSamples: matrix.NumRows(),
		FeaturesCount:   matrix.NumColumns(),
		FeatureNames:    pre.FeatureNames(),
		TargetClasses:   distinctClasses(labels),
		Accuracy:        accuracy,
		ClassifierType:  classifierType(classifier),
		Notes:           opts.Notes,
		ChangelogEntry:  opts.Changelog,
	}

	if err := reg.Save(ctx, artifact, meta); err != nil {
		return nil, err
	}
	log.Printf("[training] saved %s v%s (samples=%d, features=%d, holdout_acc=%.3f)",
		position, opts.Version, meta.TrainingSamples, meta.FeaturesCount, accuracy)

	return &Result{Artifact: artifact, Metadata: meta, Accuracy: accuracy}, nil
}

// evaluateHoldout 切留出集评估一个临时分类器，返回准确率。
// 留出集或训练集不足 5 条时跳过评估返回 0。
func evaluateHoldout(ctx context.Context, newClassifier func() core.TrainableClassifier, matrix *core.FeatureMatrix, labels []int, opts Options) (float64, error) {
	fraction := opts.HoldoutFraction
	if fraction <= 0 || fraction >= 1 {
		fraction = 0.2
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 42
	}

	n := matrix.NumRows()
	holdout := int(float64(n) * fraction)
	if holdout < 5 || n-holdout < 5 {
		return 0, nil
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	trainIdx, testIdx := perm[holdout:], perm[:holdout]

	trainMatrix := subMatrix(matrix, trainIdx)
	trainLabels := subLabels(labels, trainIdx)

	probe := newClassifier()
	if err := probe.Fit(ctx, trainMatrix, trainLabels); err != nil {
		return 0, core.NewDomainError(core.ModuleFeature, core.ErrorCodeModelTraining,
			fmt.Sprintf("training: holdout fit failed: %v", err))
	}

	correct := 0
	for _, i := range testIdx {
		pred, err := probe.Predict(ctx, matrix.Rows[i])
		if err != nil {
			return 0, err
		}
		if pred == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(testIdx)), nil
}

func subMatrix(m *core.FeatureMatrix, idx []int) *core.FeatureMatrix {
	rows := make([][]float64, len(idx))
	for i, j := range idx {
		rows[i] = m.Rows[j]
	}
	return &core.FeatureMatrix{Columns: m.Columns, Rows: rows}
}

func subLabels(labels []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = labels[j]
	}
	return out
}

func distinctClasses(labels []int) []int {
	seen := make(map[int]bool, core.NumClasses)
	var out []int
	for _, c := range labels {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func classifierType(c core.Classifier) string {
	if enc, ok := c.(model.Encoder); ok {
		return enc.Type()
	}
	return c.Name()
}

// DefaultVersion 生成基于日期的开发版本号（如 0.1.20260826）
func DefaultVersion() string {
	return fmt.Sprintf("0.1.%s", time.Now().UTC().Format("20060102"))
}
