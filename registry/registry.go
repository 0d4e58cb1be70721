package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rushteam/scoutkit/core"
)

// Registry 是模型版本仓库：按 (位置, 版本) 管理不可变的 artifact 文件、
// 元数据旁置文件、latest 指针与变更日志。
//
// 目录布局（每个位置独立一组文件）：
//
//	scoutkit_qb_pipeline_v1.2.0.model.json
//	scoutkit_qb_pipeline_v1.2.0.metadata.json
//	scoutkit_qb_pipeline_latest.model.json      （符号链接，退化为拷贝）
//	scoutkit_qb_pipeline_latest.metadata.json
//	CHANGELOG_qb.md
//
// 可选配置一个 core.Store 镜像：保存时上传，加载时本地缺失回源。
// 镜像故障只记日志，不影响本地保存/加载。
type Registry struct {
	dir    string
	mirror core.Store
}

// Option Registry 构造选项
type Option func(*Registry)

// WithMirror 配置 artifact 镜像存储（如 Redis、S3 适配）
func WithMirror(store core.Store) Option {
	return func(r *Registry) { r.mirror = store }
}

// New 创建指向 dir 的版本仓库，目录不存在时创建
func New(dir string, opts ...Option) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("registry: create models dir: %w", err)
	}
	r := &Registry{dir: dir}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dir 返回仓库目录
func (r *Registry) Dir() string { return r.dir }

func (r *Registry) modelPath(position, version string) string {
	return filepath.Join(r.dir, fmt.Sprintf("scoutkit_%s_pipeline_v%s.model.json", position, version))
}

func (r *Registry) metadataPath(position, version string) string {
	return filepath.Join(r.dir, fmt.Sprintf("scoutkit_%s_pipeline_v%s.metadata.json", position, version))
}

func (r *Registry) latestModelPath(position string) string {
	return filepath.Join(r.dir, fmt.Sprintf("scoutkit_%s_pipeline_latest.model.json", position))
}

func (r *Registry) latestMetadataPath(position string) string {
	return filepath.Join(r.dir, fmt.Sprintf("scoutkit_%s_pipeline_latest.metadata.json", position))
}

func (r *Registry) mirrorKey(position, version string) string {
	return fmt.Sprintf("scoutkit:models:%s:%s", position, version)
}

func (r *Registry) mirrorMetadataKey(position string) string {
	return fmt.Sprintf("scoutkit:models:%s:metadata", position)
}

func (r *Registry) mirrorVersionsKey(position string) string {
	return fmt.Sprintf("scoutkit:models:%s:versions", position)
}

// Save 保存一个新版本并把 latest 指针切到该版本。
//
// 约束：
//   - 版本必须是合法语义化版本（VERSION_INVALID）
//   - 同一 (位置, 版本) 不可重复保存（VERSION_EXISTS，artifact 不可变）
//
// 变更列表写入 CHANGELOG_{position}.md（新条目在前，历史保留）。
func (r *Registry) Save(ctx context.Context, artifact *Artifact, meta *Metadata) error {
	if artifact == nil {
		return fmt.Errorf("registry: nil artifact")
	}
	position := strings.ToLower(artifact.Position)
	version := artifact.Version

	if _, err := ParseVersion(version); err != nil {
		return err
	}

	modelPath := r.modelPath(position, version)
	if _, err := os.Stat(modelPath); err == nil {
		return core.NewDomainError(core.ModuleRegistry, core.ErrorCodeVersionExists,
			fmt.Sprintf("registry: version %s already exists for %s, use a different version number", version, position))
	}

	data, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}
	if err := os.WriteFile(modelPath, data, 0o644); err != nil {
		return fmt.Errorf("registry: write artifact: %w", err)
	}

	if meta == nil {
		meta = &Metadata{}
	}
	meta.ModelVersion = version
	meta.Position = position
	if meta.TrainDate == "" {
		meta.TrainDate = time.Now().UTC().Format(time.RFC3339)
	}
	if meta.Notes == "" {
		meta.Notes = fmt.Sprintf("ScoutKit %s pipeline v%s", strings.ToUpper(position), version)
	}
	if len(meta.ChangelogEntry) == 0 {
		meta.ChangelogEntry = []string{"Model retrained with latest data"}
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal metadata: %w", err)
	}
	if err := os.WriteFile(r.metadataPath(position, version), metaData, 0o644); err != nil {
		return fmt.Errorf("registry: write metadata: %w", err)
	}

	if err := r.repoint(position, version); err != nil {
		return err
	}

	if err := appendChangelog(r.dir, position, version, meta.ChangelogEntry); err != nil {
		return fmt.Errorf("registry: update changelog: %w", err)
	}

	// 镜像上传尽力而为
	if r.mirror != nil {
		if err := r.mirror.Set(ctx, r.mirrorKey(position, version), data); err != nil {
			log.Printf("[registry] mirror upload failed for %s v%s: %v", position, version, err)
		}
		// 支持扩展 KV 操作的镜像额外维护按位置归组的元数据 Hash
		// 与版本时间线（score 为保存时刻，ZRange 即最近版本在前）
		if kv, ok := r.mirror.(core.KeyValueStore); ok {
			if err := kv.HSet(ctx, r.mirrorMetadataKey(position), version, metaData); err != nil {
				log.Printf("[registry] mirror metadata upload failed for %s v%s: %v", position, version, err)
			}
			if err := kv.ZAdd(ctx, r.mirrorVersionsKey(position), float64(time.Now().UnixNano()), version); err != nil {
				log.Printf("[registry] mirror version timeline update failed for %s v%s: %v", position, version, err)
			}
		}
	}

	return nil
}

// repoint 把 latest 指针切到指定版本：优先符号链接，失败时退化为文件拷贝
// （Windows 或不支持符号链接的文件系统）。
func (r *Registry) repoint(position, version string) error {
	pairs := [][2]string{
		{r.modelPath(position, version), r.latestModelPath(position)},
		{r.metadataPath(position, version), r.latestMetadataPath(position)},
	}
	for _, pair := range pairs {
		target, link := pair[0], pair[1]
		if _, err := os.Lstat(link); err == nil {
			if err := os.Remove(link); err != nil {
				return fmt.Errorf("registry: remove stale latest pointer: %w", err)
			}
		}
		if err := os.Symlink(filepath.Base(target), link); err != nil {
			data, rerr := os.ReadFile(target)
			if rerr != nil {
				return fmt.Errorf("registry: copy latest pointer: %w", rerr)
			}
			if werr := os.WriteFile(link, data, 0o644); werr != nil {
				return fmt.Errorf("registry: copy latest pointer: %w", werr)
			}
		}
	}
	return nil
}

// Load 加载指定版本的 artifact。version 为空时等价于 LoadLatest。
// 版本不存在时返回 VERSION_NOT_FOUND，错误消息携带可用版本列表。
func (r *Registry) Load(ctx context.Context, position, version string) (*Artifact, error) {
	position = strings.ToLower(position)
	if version == "" {
		return r.LoadLatest(ctx, position)
	}
	if _, err := ParseVersion(version); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.modelPath(position, version))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("registry: read artifact: %w", err)
		}
		// 本地缺失，尝试镜像回源
		if r.mirror != nil {
			if mdata, merr := r.mirror.Get(ctx, r.mirrorKey(position, version)); merr == nil {
				log.Printf("[registry] artifact %s v%s restored from mirror", position, version)
				data = mdata
			}
		}
		if data == nil {
			available := r.availableVersions(position)
			return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeVersionNotFound,
				fmt.Sprintf("registry: version %s not found for %s (available: %v)", version, position, available))
		}
	}
	return DecodeArtifact(data)
}

// LoadLatest 通过 latest 指针加载当前版本。
// 指针缺失时回退到已有版本中语义化排序最高者；完全无版本时返回 VERSION_NOT_FOUND。
func (r *Registry) LoadLatest(ctx context.Context, position string) (*Artifact, error) {
	position = strings.ToLower(position)
	data, err := os.ReadFile(r.latestModelPath(position))
	if err == nil {
		return DecodeArtifact(data)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("registry: read latest artifact: %w", err)
	}

	versions := r.availableVersions(position)
	if len(versions) == 0 {
		return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeVersionNotFound,
			fmt.Sprintf("registry: no model versions found for %s", position))
	}
	log.Printf("[registry] latest pointer missing for %s, falling back to v%s", position, versions[0])
	return r.Load(ctx, position, versions[0])
}

// LoadMetadata 加载指定版本的元数据。version 为空时读 latest 指针。
// 本地文件缺失且镜像支持 Hash 读取时按位置归组回源。
func (r *Registry) LoadMetadata(ctx context.Context, position, version string) (*Metadata, error) {
	position = strings.ToLower(position)
	path := r.latestMetadataPath(position)
	if version != "" {
		if _, err := ParseVersion(version); err != nil {
			return nil, err
		}
		path = r.metadataPath(position, version)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("registry: read metadata: %w", err)
		}
		if kv, ok := r.mirror.(core.KeyValueStore); ok && version != "" {
			if mdata, merr := kv.HGet(ctx, r.mirrorMetadataKey(position), version); merr == nil {
				log.Printf("[registry] metadata %s v%s restored from mirror", position, version)
				data = mdata
			}
		}
		if data == nil {
			return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeVersionNotFound,
				fmt.Sprintf("registry: metadata not found for %s v%s", position, version))
		}
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("registry: parse metadata: %w", err)
	}
	return &meta, nil
}

// versionFilePattern 从文件名提取版本号
var versionFilePattern = regexp.MustCompile(`_v(\d+\.\d+\.\d+(?:-[a-zA-Z0-9\-\.]+)?)\.model\.json$`)

// Versions 枚举某位置的全部版本（语义化降序，最新在前），带元数据与文件信息。
// 元数据缺失或损坏的版本仍会列出（Metadata 为 nil）。
func (r *Registry) Versions(position string) ([]VersionInfo, error) {
	position = strings.ToLower(position)
	pattern := filepath.Join(r.dir, fmt.Sprintf("scoutkit_%s_pipeline_v*.model.json", position))
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("registry: list versions: %w", err)
	}

	byVersion := make(map[string]VersionInfo, len(files))
	var versions []string
	for _, file := range files {
		m := versionFilePattern.FindStringSubmatch(filepath.Base(file))
		if m == nil {
			continue
		}
		version := m[1]
		info := VersionInfo{Version: version, ModelFile: file}
		if st, err := os.Stat(file); err == nil {
			info.FileSize = st.Size()
			info.CreatedDate = st.ModTime().UTC().Format(time.RFC3339)
		}
		metaPath := r.metadataPath(position, version)
		if _, err := os.Stat(metaPath); err == nil {
			info.MetadataFile = metaPath
			if meta, err := r.LoadMetadata(context.Background(), position, version); err == nil {
				info.Metadata = meta
			} else {
				log.Printf("[registry] failed to load metadata for %s v%s: %v", position, version, err)
			}
		}
		byVersion[version] = info
		versions = append(versions, version)
	}

	sorted := SortVersions(versions)
	out := make([]VersionInfo, 0, len(sorted))
	for _, v := range sorted {
		out = append(out, byVersion[v])
	}
	return out, nil
}

// availableVersions 返回语义化降序的版本号列表
func (r *Registry) availableVersions(position string) []string {
	infos, err := r.Versions(position)
	if err != nil {
		return nil
	}
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Version
	}
	return out
}

// Rollback 把 latest 指针切回指定历史版本（artifact 本身不动）。
// 目标版本不存在时返回 VERSION_NOT_FOUND。
func (r *Registry) Rollback(position, version string) error {
	position = strings.ToLower(position)
	if _, err := ParseVersion(version); err != nil {
		return err
	}
	if _, err := os.Stat(r.modelPath(position, version)); err != nil {
		available := r.availableVersions(position)
		return core.NewDomainError(core.ModuleRegistry, core.ErrorCodeVersionNotFound,
			fmt.Sprintf("registry: version %s not found for %s (available: %v)", version, position, available))
	}
	return r.repoint(position, version)
}
