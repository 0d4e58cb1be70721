// Package scoutkit 是一套美式橄榄球招募评估工具包（Scouting Kit）。
//
// 设计要点：
// - Pipeline-first: 特征工程以 fit/transform 管道组织，训练与推理共享同一套变换
// - Explainable: 规则分、档位、插补标志全链路透传，每个预测都可解释
// - Versioned: 模型 artifact 语义化版本管理，latest 指针支持热切换与回滚
package scoutkit

import (
	"github.com/rushteam/scoutkit/core"
	"github.com/rushteam/scoutkit/feature"
	"github.com/rushteam/scoutkit/serving"
)

// 轻量 facade：便于用户直接 import "scoutkit" 使用核心抽象。
type Record = core.Record
type Classifier = core.Classifier
type Preprocessor = feature.Preprocessor
type Prediction = serving.Prediction

const (
	ClassD3     = core.ClassD3
	ClassD2     = core.ClassD2
	ClassFCS    = core.ClassFCS
	ClassPower5 = core.ClassPower5
)
