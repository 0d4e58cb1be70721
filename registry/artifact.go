package registry

import (
	"encoding/json"
	"fmt"

	"github.com/rushteam/scoutkit/core"
	"github.com/rushteam/scoutkit/feature"
	"github.com/rushteam/scoutkit/model"
)

// Artifact 是一个完整的可服务模型：预处理管道 + 分类器 + 身份信息。
// 一经保存不可变，回滚通过切换 latest 指针完成。
type Artifact struct {
	// Position 位置（qb / rb / wr）
	Position string
	// Version 语义化版本
	Version string
	// Preprocessor 已 fit 的特征工程管道
	Preprocessor *feature.Preprocessor
	// Classifier 已训练（或已配置）的分类器
	Classifier core.Classifier
}

// artifactFile 是 artifact 的持久化 JSON 布局。
// 分类器经 model 包类型标签编码，加载时由已注册的 Decoder 重建。
type artifactFile struct {
	Position       string          `json:"position"`
	Version        string          `json:"version"`
	Preprocessor   *feature.State  `json:"preprocessor"`
	ClassifierType string          `json:"classifier_type"`
	Classifier     json.RawMessage `json:"classifier"`
}

// EncodeArtifact 序列化 artifact
func EncodeArtifact(a *Artifact) ([]byte, error) {
	if a == nil || a.Preprocessor == nil || a.Classifier == nil {
		return nil, fmt.Errorf("registry: incomplete artifact")
	}
	typeName, clsData, err := model.Encode(a.Classifier)
	if err != nil {
		return nil, fmt.Errorf("registry: encode classifier: %w", err)
	}
	file := artifactFile{
		Position:       a.Position,
		Version:        a.Version,
		Preprocessor:   a.Preprocessor.State(),
		ClassifierType: typeName,
		Classifier:     clsData,
	}
	return json.MarshalIndent(&file, "", "  ")
}

// DecodeArtifact 反序列化 artifact，分类器按类型标签重建
func DecodeArtifact(data []byte) (*Artifact, error) {
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("registry: parse artifact: %w", err)
	}
	pre, err := feature.Restore(file.Preprocessor)
	if err != nil {
		return nil, fmt.Errorf("registry: restore preprocessor: %w", err)
	}
	cls, err := model.Decode(file.ClassifierType, file.Classifier)
	if err != nil {
		return nil, fmt.Errorf("registry: decode classifier: %w", err)
	}
	return &Artifact{
		Position:     file.Position,
		Version:      file.Version,
		Preprocessor: pre,
		Classifier:   cls,
	}, nil
}

// Metadata 是 artifact 的元数据旁置文件（.metadata.json）
type Metadata struct {
	// ModelVersion 语义化版本
	ModelVersion string `json:"model_version"`
	// Position 位置
	Position string `json:"position"`
	// TrainDate 训练完成时间（UTC, RFC3339）
	TrainDate string `json:"train_date"`
	// TrainingSamples 训练样本数
	TrainingSamples int `json:"training_samples"`
	// FeaturesCount 特征数
	FeaturesCount int `json:"features_count"`
	// FeatureNames 特征列序
	FeatureNames []string `json:"feature_names"`
	// TargetClasses 训练数据中出现过的档位类别
	TargetClasses []int `json:"target_classes"`
	// Accuracy 留出集准确率（无留出集时为 0）
	Accuracy float64 `json:"accuracy"`
	// ClassifierType 分类器类型标签
	ClassifierType string `json:"classifier_type"`
	// Notes 版本备注
	Notes string `json:"notes"`
	// ChangelogEntry 本版本的变更列表
	ChangelogEntry []string `json:"changelog_entry"`
}

// VersionInfo 版本发现结果
type VersionInfo struct {
	// Version 语义化版本
	Version string `json:"version"`
	// ModelFile artifact 文件路径
	ModelFile string `json:"model_file"`
	// MetadataFile 元数据文件路径（可能为空）
	MetadataFile string `json:"metadata_file,omitempty"`
	// FileSize artifact 文件大小（字节）
	FileSize int64 `json:"file_size"`
	// CreatedDate 文件创建时间
	CreatedDate string `json:"created_date"`
	// Metadata 元数据（加载失败时为 nil）
	Metadata *Metadata `json:"metadata,omitempty"`
}
