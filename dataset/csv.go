package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rushteam/scoutkit/core"
)

// ParseCSV 把 CSV 字节解析为记录列表。
//
// 约定：
//   - 第一行为表头，列名按 TrimSpace 规整（大小写保留，下游统一归一化）
//   - 表头重名时保留首列，后续重名列整列丢弃
//   - 单元格能解析为数字的存 float64，否则存字符串；空单元格不写入记录
//   - 行字段数与表头不一致时返回 DATA_VALIDATION
func ParseCSV(data []byte) ([]core.Record, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeDataValidation,
			"dataset: empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv header: %w", err)
	}

	// 重名表头保留首列
	keep := make([]bool, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		keep[i] = true
	}

	var records []core.Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeDataValidation,
				fmt.Sprintf("dataset: csv line %d: %v", line, err))
		}

		rec := make(core.Record, len(header))
		for i, cell := range row {
			if i >= len(header) || !keep[i] {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if f, err := strconv.ParseFloat(cell, 64); err == nil {
				rec[header[i]] = f
			} else {
				rec[header[i]] = cell
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// FetchCSV 拉取并解析一个 CSV 数据集
func FetchCSV(ctx context.Context, client BlobClient, key string) ([]core.Record, error) {
	data, err := client.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	return ParseCSV(data)
}
