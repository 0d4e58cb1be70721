// Package serving 是在线评估运行时：维护每个位置的活跃模型，
// 提供预测、版本热切换与后台重训。
//
// 设计原则：
//   - 活跃模型集合受读写锁保护，切换是原子的：预测请求要么看到旧版本，
//     要么看到新版本，绝不会看到半成品
//   - 重训持有独立的命名锁，训练期间预测不受影响；
//     手工切换/回滚也要过这把锁，避免与进行中的重训提交竞争
//   - 单个位置加载失败只降级该位置，不拖垮整个服务
package serving

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/rushteam/scoutkit/core"
	"github.com/rushteam/scoutkit/feast"
	"github.com/rushteam/scoutkit/registry"
)

// Registry 维护各位置当前活跃的模型 artifact，支持热切换。
type Registry struct {
	mu     sync.RWMutex
	active map[string]*registry.Artifact // position -> 活跃 artifact

	// retrainMu 是重训的命名锁：同一时刻只允许一轮重训
	retrainMu sync.Mutex

	source   *registry.Registry
	enricher *feast.Enricher
}

// ServingOption Registry 构造选项
type ServingOption func(*Registry)

// WithEnricher 配置 Feast 球员特征富化（可选，fail-open）
func WithEnricher(enricher *feast.Enricher) ServingOption {
	return func(r *Registry) { r.enricher = enricher }
}

// NewRegistry 创建在线模型注册表，source 是底层版本仓库。
func NewRegistry(source *registry.Registry, opts ...ServingOption) *Registry {
	r := &Registry{
		active: make(map[string]*registry.Artifact),
		source: source,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadAll 为每个已知位置加载最新版本。
// 单个位置失败只记日志并跳过（优雅降级），全部失败时返回错误。
func (r *Registry) LoadAll(ctx context.Context) error {
	loaded := 0
	for _, position := range core.Positions {
		artifact, err := r.source.LoadLatest(ctx, position)
		if err != nil {
			log.Printf("[serving] no model loaded for %s: %v", position, err)
			continue
		}
		if err := r.Switch(position, artifact); err != nil {
			log.Printf("[serving] cannot activate %s: %v", position, err)
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return core.NewDomainError(core.ModuleServing, core.ErrorCodeUnavailable,
			"serving: no models could be loaded for any position")
	}
	return nil
}

// Load 加载某位置的指定版本并切为活跃（version 为空取 latest）。
func (r *Registry) Load(ctx context.Context, position, version string) error {
	artifact, err := r.source.Load(ctx, position, version)
	if err != nil {
		return err
	}
	return r.Switch(position, artifact)
}

// Switch 手工把某位置的活跃模型切到给定 artifact。
// 手工切换与后台重训互斥：重训进行中返回 UNAVAILABLE，
// 否则切换后立刻发生的重训提交会悄悄覆盖这次切换。
func (r *Registry) Switch(position string, artifact *registry.Artifact) error {
	if !r.retrainMu.TryLock() {
		return core.NewDomainError(core.ModuleServing, core.ErrorCodeUnavailable,
			"serving: a retraining round is in progress, cannot switch manually")
	}
	defer r.retrainMu.Unlock()

	r.install(map[string]*registry.Artifact{position: artifact})
	return nil
}

// install 在一次加锁内把一批位置切到新 artifact。
// 预测请求要么看到整批切换前的集合，要么看到切换后的，绝无混合状态。
func (r *Registry) install(staged map[string]*registry.Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for position, artifact := range staged {
		old := r.active[position]
		r.active[position] = artifact
		if old != nil {
			log.Printf("[serving] %s switched v%s -> v%s", position, old.Version, artifact.Version)
		} else {
			log.Printf("[serving] %s loaded v%s", position, artifact.Version)
		}
	}
}

// Active 返回某位置当前活跃的 artifact。
// 未加载时返回 VERSION_NOT_FOUND（快速失败，不做磁盘 IO），
// 错误消息带上当前已加载与全部已知的位置列表。
func (r *Registry) Active(position string) (*registry.Artifact, error) {
	r.mu.RLock()
	artifact, ok := r.active[position]
	var loaded []string
	if !ok {
		for _, pos := range core.Positions {
			if _, has := r.active[pos]; has {
				loaded = append(loaded, pos)
			}
		}
	}
	r.mu.RUnlock()
	if !ok {
		return nil, core.NewDomainError(core.ModuleServing, core.ErrorCodeVersionNotFound,
			fmt.Sprintf("serving: no active model for position %q (loaded: %v, known: %v)",
				position, loaded, core.Positions))
	}
	return artifact, nil
}

// Rollback 把某位置回滚到历史版本：仓库指针与活跃模型同时切换。
// 与手工切换相同，回滚不得与进行中的重训竞争。
func (r *Registry) Rollback(ctx context.Context, position, version string) error {
	if !r.retrainMu.TryLock() {
		return core.NewDomainError(core.ModuleServing, core.ErrorCodeUnavailable,
			"serving: a retraining round is in progress, cannot roll back")
	}
	defer r.retrainMu.Unlock()

	if err := r.source.Rollback(position, version); err != nil {
		return err
	}
	artifact, err := r.source.Load(ctx, position, version)
	if err != nil {
		return err
	}
	r.install(map[string]*registry.Artifact{position: artifact})
	return nil
}

// ModelInfo 某位置活跃模型的概要信息
type ModelInfo struct {
	Position     string   `json:"position"`
	Version      string   `json:"version"`
	Classifier   string   `json:"classifier"`
	FeatureCount int      `json:"feature_count"`
	Features     []string `json:"features,omitempty"`
}

// Info 返回所有活跃模型的概要（按 core.Positions 顺序，未加载的跳过）。
func (r *Registry) Info() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModelInfo, 0, len(r.active))
	for _, position := range core.Positions {
		artifact, ok := r.active[position]
		if !ok {
			continue
		}
		out = append(out, ModelInfo{
			Position:     position,
			Version:      artifact.Version,
			Classifier:   artifact.Classifier.Name(),
			FeatureCount: len(artifact.Preprocessor.FeatureNames()),
		})
	}
	return out
}

// Versions 列出某位置仓库里的全部版本（最新在前）。
func (r *Registry) Versions(position string) ([]registry.VersionInfo, error) {
	return r.source.Versions(position)
}

// PositionStatus 某位置的完整服务状态
type PositionStatus struct {
	Position string `json:"position"`
	// Loaded 是否有活跃模型
	Loaded bool `json:"loaded"`
	// ActiveVersion 活跃模型版本（未加载时为空）
	ActiveVersion string `json:"active_version,omitempty"`
	// Available 仓库中的全部版本（最新在前）
	Available []registry.VersionInfo `json:"available,omitempty"`
	// Metadata 活跃版本的元数据（缺失时为 nil）
	Metadata *registry.Metadata `json:"metadata,omitempty"`
}

// Describe 返回某位置的服务状态：是否已加载、活跃版本、可用版本与元数据。
// 位置本身未加载不算错误，Loaded 为 false。
func (r *Registry) Describe(ctx context.Context, position string) (*PositionStatus, error) {
	status := &PositionStatus{Position: position}

	r.mu.RLock()
	artifact, ok := r.active[position]
	r.mu.RUnlock()
	if ok {
		status.Loaded = true
		status.ActiveVersion = artifact.Version
		if meta, err := r.source.LoadMetadata(ctx, position, artifact.Version); err == nil {
			status.Metadata = meta
		}
	}

	available, err := r.source.Versions(position)
	if err != nil {
		return nil, err
	}
	status.Available = available
	return status, nil
}
