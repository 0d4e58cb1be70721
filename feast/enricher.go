package feast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/rushteam/scoutkit/core"
)

// Enricher 在预测前用 Feast 在线特征补全球员记录的缺失字段。
//
// 策略：
//   - 只补缺：请求自带的字段永远优先，Feast 值仅填入缺失字段
//   - fail-open：Feast 查询失败只记日志，返回原始记录
//   - 可选缓存：配置 core.Store 后按 athlete_id 缓存富化结果（短 TTL），
//     降低热门球员的重复查询
type Enricher struct {
	client   Client
	features []string
	cache    core.Store
	cacheTTL int
}

// EnricherOption Enricher 构造选项
type EnricherOption func(*Enricher)

// WithCache 配置富化结果缓存，ttl 单位秒
func WithCache(store core.Store, ttlSeconds int) EnricherOption {
	return func(e *Enricher) {
		e.cache = store
		e.cacheTTL = ttlSeconds
	}
}

// NewEnricher 创建球员特征富化器。
// features 是要拉取的 Feast 特征列表，例如 ["athlete_stats:senior_ypg"]。
func NewEnricher(client Client, features []string, opts ...EnricherOption) *Enricher {
	e := &Enricher{client: client, features: features}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich 按 athlete_id 拉取在线特征并补全缺失字段，返回补全后的副本。
// 记录无 athlete_id、特征列表为空或查询失败时原样返回。
func (e *Enricher) Enrich(ctx context.Context, rec core.Record) core.Record {
	if e.client == nil || len(e.features) == 0 {
		return rec
	}
	athleteID, ok := rec.String("athlete_id")
	if !ok || athleteID == "" {
		return rec
	}

	values := e.lookup(ctx, athleteID)
	if len(values) == 0 {
		return rec
	}

	out := rec.Clone()
	for name, v := range values {
		// "athlete_stats:senior_ypg" -> "senior_ypg"
		key := featureColumn(name)
		if !out.Has(key) {
			out[key] = v
		}
	}
	return out
}

func (e *Enricher) lookup(ctx context.Context, athleteID string) map[string]interface{} {
	cacheKey := "scoutkit:enrich:" + athleteID
	if e.cache != nil {
		if data, err := e.cache.Get(ctx, cacheKey); err == nil {
			var values map[string]interface{}
			if err := json.Unmarshal(data, &values); err == nil {
				return values
			}
		}
	}

	resp, err := e.client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   e.features,
		EntityRows: []map[string]interface{}{{"athlete_id": athleteID}},
	})
	if err != nil {
		log.Printf("[feast] enrichment lookup failed for %s: %v", athleteID, err)
		return nil
	}
	if len(resp.FeatureVectors) == 0 {
		return nil
	}
	values := resp.FeatureVectors[0].Values

	if e.cache != nil && len(values) > 0 {
		if data, err := json.Marshal(values); err == nil {
			if err := e.cache.Set(ctx, cacheKey, data, e.cacheTTL); err != nil {
				log.Printf("[feast] enrichment cache write failed for %s: %v", athleteID, err)
			}
		}
	}
	return values
}

// featureColumn 取特征全名的列名部分（去掉 feature view 前缀）
func featureColumn(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == ':' {
			return name[i+1:]
		}
	}
	return name
}

// String 便于日志展示
func (e *Enricher) String() string {
	return fmt.Sprintf("feast.Enricher(features=%d, cache=%v)", len(e.features), e.cache != nil)
}
