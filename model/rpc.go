package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rushteam/scoutkit/core"
)

// RPCClassifier 是通过 RPC/HTTP 调用外部分类服务的 Classifier 实现。
// 支持 GBDT、XGBoost 等托管在独立推理服务上的模型。
type RPCClassifier struct {
	name     string
	Endpoint string // 例如 "http://localhost:8080/predict"
	Timeout  time.Duration
	Client   *http.Client
	Columns  []string // 特征列序，请求里带上便于服务端校验
}

// NewRPCClassifier 创建外部分类服务客户端
func NewRPCClassifier(name, endpoint string, timeout time.Duration) *RPCClassifier {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &RPCClassifier{
		name:     name,
		Endpoint: endpoint,
		Timeout:  timeout,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (m *RPCClassifier) Name() string {
	return m.name
}

// Type 实现 Encoder
func (m *RPCClassifier) Type() string { return "rpc" }

// Encode 实现 Encoder（只持久化连接参数，模型本体在外部服务）
func (m *RPCClassifier) Encode() ([]byte, error) {
	return json.Marshal(struct {
		Name     string   `json:"name"`
		Endpoint string   `json:"endpoint"`
		TimeoutS float64  `json:"timeout_seconds"`
		Columns  []string `json:"columns,omitempty"`
	}{m.name, m.Endpoint, m.Timeout.Seconds(), m.Columns})
}

func init() {
	RegisterDecoder("rpc", func(data []byte) (core.Classifier, error) {
		var raw struct {
			Name     string   `json:"name"`
			Endpoint string   `json:"endpoint"`
			TimeoutS float64  `json:"timeout_seconds"`
			Columns  []string `json:"columns"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		c := NewRPCClassifier(raw.Name, raw.Endpoint, time.Duration(raw.TimeoutS*float64(time.Second)))
		c.Columns = raw.Columns
		return c, nil
	})
}

// Predict 调用远程服务预测单个样本（内部调用批量接口）
func (m *RPCClassifier) Predict(ctx context.Context, row []float64) (int, error) {
	probas, err := m.PredictProbaBatch(ctx, [][]float64{row})
	if err != nil {
		return 0, err
	}
	if len(probas) == 0 {
		return 0, fmt.Errorf("empty response")
	}
	return argmax(probas[0]), nil
}

// PredictProba 调用远程服务预测单个样本的类别概率
func (m *RPCClassifier) PredictProba(ctx context.Context, row []float64) ([]float64, error) {
	probas, err := m.PredictProbaBatch(ctx, [][]float64{row})
	if err != nil {
		return nil, err
	}
	if len(probas) == 0 {
		return nil, fmt.Errorf("empty response")
	}
	return probas[0], nil
}

// PredictProbaBatch 调用远程服务进行批量概率预测。
// 请求格式（JSON）：
//
//	{"instances": [[f1, f2, ...], ...], "columns": ["bmi", ...]}
//
// 响应格式（JSON）：
//
//	{"probabilities": [[p0, p1, p2, p3], ...]}
func (m *RPCClassifier) PredictProbaBatch(ctx context.Context, instances [][]float64) ([][]float64, error) {
	if m.Client == nil {
		m.Client = &http.Client{Timeout: m.Timeout}
	}

	if len(instances) == 0 {
		return [][]float64{}, nil
	}

	// 构建请求
	reqBody := map[string]any{
		"instances": instances,
	}
	if len(m.Columns) > 0 {
		reqBody["columns"] = m.Columns
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// 发送请求
	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("rpc error: status=%d, read body failed: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("rpc error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	// 解析响应
	var result struct {
		Probabilities [][]float64 `json:"probabilities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(result.Probabilities) != len(instances) {
		return nil, fmt.Errorf("response count mismatch: expected %d, got %d", len(instances), len(result.Probabilities))
	}

	return result.Probabilities, nil
}

func argmax(values []float64) int {
	best, bestV := 0, -1.0
	for i, v := range values {
		if v > bestV {
			best, bestV = i, v
		}
	}
	return best
}

var _ core.Classifier = (*RPCClassifier)(nil)
var _ Encoder = (*RPCClassifier)(nil)
