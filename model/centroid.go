package model

import (
	"context"
	"encoding/json"
	"math"

	"github.com/rushteam/scoutkit/core"
)

// CentroidClassifier 实现了最近质心 (Nearest Centroid) 分类器。
// 它是本地可训练的基线模型：训练时按类别求标准化特征均值，
// 预测时取欧氏距离最近的质心。
//
// 预测原理：
// 1. 特征按训练时的均值/标准差做 z-score 标准化
// 2. 计算与每个类别质心的距离 d_c
// 3. 概率用距离的 softmax 近似: P(c) = exp(-d_c) / sum(exp(-d_k))
//
// 线上主力模型是外部 GBDT 服务（RPCClassifier），本模型用于
// 离线训练、回归测试与外部服务不可用时的兜底。
type CentroidClassifier struct {
	Centroids map[int][]float64 `json:"centroids"` // 类别 → 标准化质心
	Mean      []float64         `json:"mean"`      // 逐特征均值
	Std       []float64         `json:"std"`       // 逐特征标准差
	Classes   []int             `json:"classes"`   // 出现过的类别（升序）
}

// NewCentroidClassifier 创建未训练的最近质心分类器
func NewCentroidClassifier() *CentroidClassifier {
	return &CentroidClassifier{Centroids: make(map[int][]float64)}
}

func (m *CentroidClassifier) Name() string { return "centroid" }

// Type 实现 Encoder
func (m *CentroidClassifier) Type() string { return "centroid" }

// Encode 实现 Encoder
func (m *CentroidClassifier) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func init() {
	RegisterDecoder("centroid", func(data []byte) (core.Classifier, error) {
		var m CentroidClassifier
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	})
}

// Fit 训练：估计逐特征均值/标准差，再按类别求标准化质心
func (m *CentroidClassifier) Fit(ctx context.Context, mtx *core.FeatureMatrix, labels []int) error {
	if mtx == nil || len(mtx.Rows) == 0 {
		return core.NewDomainError(core.ModuleFeature, core.ErrorCodeModelTraining,
			"centroid: empty training matrix")
	}
	if len(labels) != len(mtx.Rows) {
		return core.NewDomainError(core.ModuleFeature, core.ErrorCodeModelTraining,
			"centroid: labels do not match training rows")
	}

	dim := len(mtx.Columns)
	m.Mean = make([]float64, dim)
	m.Std = make([]float64, dim)

	for _, row := range mtx.Rows {
		for j, v := range row {
			m.Mean[j] += v
		}
	}
	n := float64(len(mtx.Rows))
	for j := range m.Mean {
		m.Mean[j] /= n
	}
	for _, row := range mtx.Rows {
		for j, v := range row {
			d := v - m.Mean[j]
			m.Std[j] += d * d
		}
	}
	for j := range m.Std {
		m.Std[j] = math.Sqrt(m.Std[j] / n)
	}

	sums := make(map[int][]float64)
	counts := make(map[int]int)
	for i, row := range mtx.Rows {
		label := labels[i]
		if _, ok := sums[label]; !ok {
			sums[label] = make([]float64, dim)
		}
		z := m.normalize(row)
		for j, v := range z {
			sums[label][j] += v
		}
		counts[label]++
	}

	m.Centroids = make(map[int][]float64, len(sums))
	m.Classes = m.Classes[:0]
	for label, sum := range sums {
		centroid := make([]float64, dim)
		for j, v := range sum {
			centroid[j] = v / float64(counts[label])
		}
		m.Centroids[label] = centroid
	}
	for label := 0; label < core.NumClasses; label++ {
		if _, ok := m.Centroids[label]; ok {
			m.Classes = append(m.Classes, label)
		}
	}
	return nil
}

// Predict 返回距离最近的类别
func (m *CentroidClassifier) Predict(ctx context.Context, row []float64) (int, error) {
	proba, err := m.PredictProba(ctx, row)
	if err != nil {
		return 0, err
	}
	best, bestP := 0, -1.0
	for label, p := range proba {
		if p > bestP {
			best, bestP = label, p
		}
	}
	return best, nil
}

// PredictProba 以距离 softmax 近似各类别概率（下标为类别，未见类别为 0）
func (m *CentroidClassifier) PredictProba(ctx context.Context, row []float64) ([]float64, error) {
	if len(m.Centroids) == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeModelTraining,
			"centroid: classifier is not fitted")
	}
	z := m.normalize(row)

	proba := make([]float64, core.NumClasses)
	var total float64
	for label, centroid := range m.Centroids {
		d := 0.0
		for j := range centroid {
			if j >= len(z) {
				break
			}
			diff := z[j] - centroid[j]
			d += diff * diff
		}
		w := math.Exp(-math.Sqrt(d))
		if label >= 0 && label < core.NumClasses {
			proba[label] = w
			total += w
		}
	}
	if total > 0 {
		for i := range proba {
			proba[i] /= total
		}
	}
	return proba, nil
}

func (m *CentroidClassifier) normalize(row []float64) []float64 {
	z := make([]float64, len(row))
	for j, v := range row {
		if j < len(m.Std) && m.Std[j] > 0 {
			z[j] = (v - m.Mean[j]) / m.Std[j]
		} else if j < len(m.Mean) {
			z[j] = v - m.Mean[j]
		} else {
			z[j] = v
		}
	}
	return z
}

// 确保实现领域接口
var _ core.TrainableClassifier = (*CentroidClassifier)(nil)
var _ Encoder = (*CentroidClassifier)(nil)
