// Package config 定义 ScoutKit 的应用配置（支持 YAML/JSON）并负责
// 按配置装配存储、数据源等基础设施。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/scoutkit/feature"
)

// 综合评估的组件权重。这些是文档化的配置常量：响应里的组件分数
// 按固定权重组合，不做运行时推导。
const (
	// DefaultPerformanceWeight 比赛表现分权重
	DefaultPerformanceWeight = 0.4
	// DefaultCombineWeight 体测分权重
	DefaultCombineWeight = 0.3
	// DefaultUpsideWeight 成长潜力分权重
	DefaultUpsideWeight = 0.3
)

// Config 是 ScoutKit 的应用配置。
type Config struct {
	// ModelsDir 模型 artifact 目录
	ModelsDir string `yaml:"models_dir" json:"models_dir"`

	// Store 存储后端配置（artifact 镜像 / 数据集 / 特征缓存）
	Store StoreConfig `yaml:"store" json:"store"`

	// Feast 特征富化配置（可选）
	Feast FeastConfig `yaml:"feast" json:"feast"`

	// Serving 在线服务配置
	Serving ServingConfig `yaml:"serving" json:"serving"`

	// Pipeline 特征管道配置
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`
}

// StoreConfig 存储后端配置
type StoreConfig struct {
	// Driver 存储驱动：memory / redis（空时不启用）
	Driver string `yaml:"driver" json:"driver"`

	// Addr Redis 地址，例如 "localhost:6379"
	Addr string `yaml:"addr" json:"addr"`

	// DB Redis 数据库编号
	DB int `yaml:"db" json:"db"`
}

// FeastConfig Feast 特征富化配置
type FeastConfig struct {
	// Endpoint Feature Server 端点，例如 "localhost:6565"（空时不启用富化）
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Project 项目名称
	Project string `yaml:"project" json:"project"`

	// Features 要拉取的特征全名列表，例如 "athlete_stats:senior_ypg"
	Features []string `yaml:"features" json:"features"`

	// CacheTTL 富化结果缓存秒数（0 时不缓存）
	CacheTTL int `yaml:"cache_ttl" json:"cache_ttl"`

	// Token 静态认证 Token（可选）
	Token string `yaml:"token" json:"token"`
}

// ServingConfig 在线服务配置
type ServingConfig struct {
	// RetrainWorkers 重训并发数，<=0 使用默认值 2
	RetrainWorkers int `yaml:"retrain_workers" json:"retrain_workers"`

	// RetrainTimeoutSeconds 一轮重训总超时秒数，<=0 使用默认值 120
	RetrainTimeoutSeconds int `yaml:"retrain_timeout_seconds" json:"retrain_timeout_seconds"`

	// DatasetKey 数据集 key 模板，%s 替换为位置名
	DatasetKey string `yaml:"dataset_key" json:"dataset_key"`

	// DatasetDir 本地数据集目录（远端存储缺失时降级）
	DatasetDir string `yaml:"dataset_dir" json:"dataset_dir"`
}

// RetrainTimeout 返回重训超时（带默认值）
func (c ServingConfig) RetrainTimeout() time.Duration {
	if c.RetrainTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RetrainTimeoutSeconds) * time.Second
}

// PipelineConfig 特征管道配置，零值字段使用 feature.DefaultConfig 的默认值
type PipelineConfig struct {
	// Seed 插补随机种子
	Seed int64 `yaml:"seed" json:"seed"`

	// MinTrainingRows fit 最小样本数
	MinTrainingRows int `yaml:"min_training_rows" json:"min_training_rows"`

	// WinsorizeLower / WinsorizeUpper 缩尾分位（百分数）
	WinsorizeLower float64 `yaml:"winsorize_lower" json:"winsorize_lower"`
	WinsorizeUpper float64 `yaml:"winsorize_upper" json:"winsorize_upper"`

	// ConfidenceFloor 体测置信度下限
	ConfidenceFloor float64 `yaml:"confidence_floor" json:"confidence_floor"`

	// BonusRules 自定义加分规则（CEL 表达式）
	BonusRules []feature.BonusRule `yaml:"bonus_rules" json:"bonus_rules"`
}

// PipelineOptions 把配置转换为特征管道选项
func (c PipelineConfig) PipelineOptions() []feature.PreprocessorOption {
	cfg := feature.DefaultConfig()
	if c.Seed != 0 {
		cfg.Seed = c.Seed
	}
	if c.MinTrainingRows > 0 {
		cfg.MinTrainingRows = c.MinTrainingRows
	}
	if c.WinsorizeLower > 0 {
		cfg.WinsorizeLower = c.WinsorizeLower
	}
	if c.WinsorizeUpper > 0 {
		cfg.WinsorizeUpper = c.WinsorizeUpper
	}
	if c.ConfidenceFloor > 0 {
		cfg.ConfidenceFloor = c.ConfidenceFloor
	}
	cfg.BonusRules = c.BonusRules
	return []feature.PreprocessorOption{feature.WithConfig(cfg)}
}

// LoadFromYAML 从 YAML 文件加载配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ModelsDir == "" {
		c.ModelsDir = "models"
	}
	if c.Serving.DatasetKey == "" {
		c.Serving.DatasetKey = "recruits_%s.csv"
	}
}
