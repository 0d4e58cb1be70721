// Package store 提供 core.Store / core.KeyValueStore 的具体实现。
//
// 用途：
//   - 训练数据 blob 存取（dataset 包）
//   - 模型 artifact 镜像（registry 包）
//   - feast 特征富化结果缓存（serving 包）
package store

import "github.com/rushteam/scoutkit/core"

// 错误别名，方便调用方使用
var (
	ErrNotFound     = core.ErrStoreNotFound
	ErrNotSupported = core.ErrStoreNotSupported
)

// KeyValueStore 别名，方便调用方使用
type KeyValueStore = core.KeyValueStore
