package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/scoutkit/core"
	"github.com/rushteam/scoutkit/dataset"
	"github.com/rushteam/scoutkit/feast"
	"github.com/rushteam/scoutkit/store"
)

// StoreBuilder 根据配置构建一个 core.Store。
// 各驱动在 init 中调用 RegisterStore(driver, builder) 即可被配置驱动。
type StoreBuilder func(cfg StoreConfig) (core.Store, error)

var (
	storeBuilders   = make(map[string]StoreBuilder)
	storeBuildersMu sync.RWMutex
)

// RegisterStore 注册一种存储驱动的构建逻辑。
func RegisterStore(driver string, builder StoreBuilder) {
	if driver == "" || builder == nil {
		return
	}
	storeBuildersMu.Lock()
	defer storeBuildersMu.Unlock()
	storeBuilders[driver] = builder
}

// SupportedStoreDrivers 返回当前已注册的驱动列表（排序），用于错误提示。
func SupportedStoreDrivers() []string {
	storeBuildersMu.RLock()
	defer storeBuildersMu.RUnlock()
	drivers := make([]string, 0, len(storeBuilders))
	for d := range storeBuilders {
		drivers = append(drivers, d)
	}
	sort.Strings(drivers)
	return drivers
}

func init() {
	RegisterStore("memory", func(cfg StoreConfig) (core.Store, error) {
		return store.NewMemoryStore(), nil
	})
	RegisterStore("redis", func(cfg StoreConfig) (core.Store, error) {
		if cfg.Addr == "" {
			return nil, fmt.Errorf("config: redis store requires addr")
		}
		return store.NewRedisStore(cfg.Addr, cfg.DB)
	})
}

// BuildStore 按配置构建存储后端。Driver 为空时返回 (nil, nil)，表示不启用。
func (c *Config) BuildStore() (core.Store, error) {
	if c.Store.Driver == "" {
		return nil, nil
	}
	storeBuildersMu.RLock()
	builder, ok := storeBuilders[c.Store.Driver]
	storeBuildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("config: unknown store driver %q (supported: %v)",
			c.Store.Driver, SupportedStoreDrivers())
	}
	return builder(c.Store)
}

// BuildBlobClient 按配置构建训练数据源，按可用性降级：
// 远端存储 → 本地目录。kv 为 nil 且未配置本地目录时返回错误。
func (c *Config) BuildBlobClient(kv core.Store) (dataset.BlobClient, error) {
	var clients []dataset.BlobClient
	if kv != nil {
		clients = append(clients, dataset.NewStoreBlobClient(kv, "scoutkit:datasets:"))
	}
	if c.Serving.DatasetDir != "" {
		clients = append(clients, dataset.NewLocalBlobClient(c.Serving.DatasetDir))
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("config: no dataset source configured (set store.driver or serving.dataset_dir)")
	}
	if len(clients) == 1 {
		return clients[0], nil
	}
	return dataset.NewFallbackBlobClient(clients...), nil
}

// BuildEnricher 按配置构建 Feast 富化器。Endpoint 为空时返回 (nil, nil)。
func (c *Config) BuildEnricher(cache core.Store) (*feast.Enricher, error) {
	if c.Feast.Endpoint == "" || len(c.Feast.Features) == 0 {
		return nil, nil
	}

	host, port := feast.ParseEndpoint(c.Feast.Endpoint)
	var opts []feast.ClientOption
	if c.Feast.Token != "" {
		opts = append(opts, feast.WithAuth(&feast.AuthConfig{Type: "static", Token: c.Feast.Token}))
	}
	client, err := feast.NewGrpcClient(host, port, c.Feast.Project, opts...)
	if err != nil {
		return nil, err
	}

	var enricherOpts []feast.EnricherOption
	if cache != nil && c.Feast.CacheTTL > 0 {
		enricherOpts = append(enricherOpts, feast.WithCache(cache, c.Feast.CacheTTL))
	}
	return feast.NewEnricher(client, c.Feast.Features, enricherOpts...), nil
}
