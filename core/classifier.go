package core

import "context"

// Classifier 是四档结果分类器的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（model）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//   - 避免循环依赖：领域层不依赖基础设施层
//
// 使用场景：
//   - 本地基线模型：最近质心分类器（model.CentroidClassifier）
//   - 外部模型服务：GBDT/XGBoost 推理服务（model.RPCClassifier）
//
// 输入是 FeatureMatrix 的单行（列序与 fit 时一致），
// 输出是档位类别（见 division.go）与各类别概率。
type Classifier interface {
	// Name 返回分类器名称（用于日志/artifact 类型标签）
	Name() string

	// Predict 预测单个样本的档位类别
	Predict(ctx context.Context, row []float64) (int, error)

	// PredictProba 预测单个样本的各类别概率（下标为类别）
	PredictProba(ctx context.Context, row []float64) ([]float64, error)
}

// TrainableClassifier 是可在本地训练的分类器。
// RPC 类分类器不实现此接口（训练发生在外部服务）。
type TrainableClassifier interface {
	Classifier

	// Fit 在特征矩阵与档位标签上训练，labels 与 m.Rows 一一对应
	Fit(ctx context.Context, m *FeatureMatrix, labels []int) error
}
