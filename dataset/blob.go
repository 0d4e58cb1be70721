// Package dataset 负责训练数据的获取与解析。
//
// 数据流：BlobClient 按 key 拉取原始 CSV 字节 → ParseCSV 解析为 core.Record
// 列表 → training 包喂给特征管道。BlobClient 的实现按可用性降级：
// 远端存储（StoreBlobClient）→ 本地目录（LocalBlobClient）→ 内置样例
// （DummyBlobClient，开发/演示用）。
package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rushteam/scoutkit/core"
)

// BlobClient 按 key 拉取原始数据块（训练 CSV）。
type BlobClient interface {
	// Name 返回数据源名称（用于日志）
	Name() string

	// Fetch 拉取 key 对应的数据块
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// StoreBlobClient 把 core.Store 适配为 BlobClient，
// 用于 Redis 等远端存储中的训练数据集。
type StoreBlobClient struct {
	store  core.Store
	prefix string
}

// NewStoreBlobClient 创建基于 core.Store 的数据源。
// prefix 拼在 key 前，例如 "scoutkit:datasets:"。
func NewStoreBlobClient(store core.Store, prefix string) *StoreBlobClient {
	return &StoreBlobClient{store: store, prefix: prefix}
}

func (c *StoreBlobClient) Name() string { return "store:" + c.store.Name() }

func (c *StoreBlobClient) Fetch(ctx context.Context, key string) ([]byte, error) {
	data, err := c.store.Get(ctx, c.prefix+key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
				fmt.Sprintf("dataset: blob %q not found in %s", key, c.store.Name()))
		}
		return nil, fmt.Errorf("dataset: fetch %q: %w", key, err)
	}
	return data, nil
}

// LocalBlobClient 从本地目录读数据块，key 即相对文件名。
type LocalBlobClient struct {
	dir string
}

func NewLocalBlobClient(dir string) *LocalBlobClient {
	return &LocalBlobClient{dir: dir}
}

func (c *LocalBlobClient) Name() string { return "local:" + c.dir }

func (c *LocalBlobClient) Fetch(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, filepath.Clean(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
				fmt.Sprintf("dataset: blob %q not found in %s", key, c.dir))
		}
		return nil, fmt.Errorf("dataset: fetch %q: %w", key, err)
	}
	return data, nil
}

// DummyBlobClient 返回固定的内置数据块，开发/演示环境兜底。
type DummyBlobClient struct {
	blobs map[string][]byte
}

func NewDummyBlobClient(blobs map[string][]byte) *DummyBlobClient {
	return &DummyBlobClient{blobs: blobs}
}

func (c *DummyBlobClient) Name() string { return "dummy" }

func (c *DummyBlobClient) Fetch(ctx context.Context, key string) ([]byte, error) {
	data, ok := c.blobs[key]
	if !ok {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
			fmt.Sprintf("dataset: blob %q not found in dummy source", key))
	}
	return data, nil
}

// FallbackBlobClient 按顺序尝试多个数据源，第一个成功者胜出。
// 只有 NOT_FOUND 会继续向后尝试，其他错误立即返回。
type FallbackBlobClient struct {
	clients []BlobClient
}

func NewFallbackBlobClient(clients ...BlobClient) *FallbackBlobClient {
	return &FallbackBlobClient{clients: clients}
}

func (c *FallbackBlobClient) Name() string { return "fallback" }

func (c *FallbackBlobClient) Fetch(ctx context.Context, key string) ([]byte, error) {
	var lastErr error
	for _, client := range c.clients {
		data, err := client.Fetch(ctx, key)
		if err == nil {
			return data, nil
		}
		if !core.IsNotFound(err) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = core.NewDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
			fmt.Sprintf("dataset: blob %q not found (no sources configured)", key))
	}
	return nil, lastErr
}

var (
	_ BlobClient = (*StoreBlobClient)(nil)
	_ BlobClient = (*LocalBlobClient)(nil)
	_ BlobClient = (*DummyBlobClient)(nil)
	_ BlobClient = (*FallbackBlobClient)(nil)
)
