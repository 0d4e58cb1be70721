package serving

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/scoutkit/core"
	"github.com/rushteam/scoutkit/dataset"
	"github.com/rushteam/scoutkit/registry"
	"github.com/rushteam/scoutkit/training"
)

const (
	// DefaultRetrainWorkers 同时训练的位置数上限
	DefaultRetrainWorkers = 2

	// DefaultRetrainTimeout 一轮重训的总超时
	DefaultRetrainTimeout = 120 * time.Second
)

// RetrainRequest 一轮重训的参数
type RetrainRequest struct {
	// Positions 要重训的位置，空时重训所有位置
	Positions []string

	// Version 新版本号（所有位置共用，必填）
	Version string

	// Changelog 版本变更列表
	Changelog []string

	// DatasetKey 数据集 key 模板，%s 会替换为位置名，
	// 例如 "recruits_%s.csv"。空时使用默认模板。
	DatasetKey string

	// Workers 并发训练数，<=0 时使用默认值 2
	Workers int

	// Timeout 总超时，<=0 时使用默认值 120s
	Timeout time.Duration
}

// Retrain 对指定位置做一轮后台重训并热切换。
//
// 语义：
//   - 命名锁：同一时刻只允许一轮重训，后来者直接返回 UNAVAILABLE
//   - 工作池：同时最多 Workers 个位置在训练（errgroup.SetLimit）
//   - 超时：整轮受 Timeout 约束，超时后未完成的训练被取消
//   - 批量提交：所有位置都训练成功才统一切换活跃模型；
//     任何一个失败或超时，活跃模型集合保持原样
func (r *Registry) Retrain(ctx context.Context, blobs dataset.BlobClient, req RetrainRequest) error {
	if !r.retrainMu.TryLock() {
		return core.NewDomainError(core.ModuleServing, core.ErrorCodeUnavailable,
			"serving: a retraining round is already in progress")
	}
	defer r.retrainMu.Unlock()

	positions := req.Positions
	if len(positions) == 0 {
		positions = core.Positions
	}
	workers := req.Workers
	if workers <= 0 {
		workers = DefaultRetrainWorkers
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultRetrainTimeout
	}
	keyTemplate := req.DatasetKey
	if keyTemplate == "" {
		keyTemplate = "recruits_%s.csv"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		staged = make(map[string]*training.Result, len(positions))
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for _, position := range positions {
		pos := position
		eg.Go(func() error {
			start := time.Now()

			records, err := dataset.FetchCSV(egCtx, blobs, fmt.Sprintf(keyTemplate, pos))
			if err != nil {
				return fmt.Errorf("retrain %s: %w", pos, err)
			}

			result, err := training.Train(egCtx, r.source, pos, records, training.Options{
				Version:   req.Version,
				Changelog: req.Changelog,
			})
			if err != nil {
				return fmt.Errorf("retrain %s: %w", pos, err)
			}

			mu.Lock()
			staged[pos] = result
			mu.Unlock()

			log.Printf("[serving] retrained %s v%s in %s (holdout_acc=%.3f)",
				pos, req.Version, time.Since(start).Round(time.Millisecond), result.Accuracy)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		log.Printf("[serving] retraining round v%s aborted, active models unchanged: %v", req.Version, err)
		return err
	}

	// 全部成功，一次加锁统一切换
	artifacts := make(map[string]*registry.Artifact, len(staged))
	for pos, result := range staged {
		artifacts[pos] = result.Artifact
	}
	r.install(artifacts)
	return nil
}
