package core

// FeatureMatrix 是特征工程管道的输出：列序固定的数值矩阵。
// Columns 的顺序在 fit 时确定，训练与推理共用同一份列序，
// 下游分类器按位置读取特征。
type FeatureMatrix struct {
	// Columns 特征列名（按 fit 时确定的顺序）
	Columns []string
	// Rows 每行一个样本，与 Columns 一一对应
	Rows [][]float64
}

// ColumnIndex 返回列名对应的下标，不存在时返回 -1
func (m *FeatureMatrix) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column 按列名取整列值，不存在时返回 nil
func (m *FeatureMatrix) Column(name string) []float64 {
	idx := m.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(m.Rows))
	for i, row := range m.Rows {
		out[i] = row[idx]
	}
	return out
}

// NumRows 返回样本数
func (m *FeatureMatrix) NumRows() int { return len(m.Rows) }

// NumColumns 返回特征数
func (m *FeatureMatrix) NumColumns() int { return len(m.Columns) }
