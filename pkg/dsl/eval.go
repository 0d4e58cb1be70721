package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		// 定义变量类型
		cel.Variable("row", cel.DynType),
		cel.Variable("position", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是评分规则 DSL 解释器，使用 CEL (Common Expression Language) 实现。
// CEL 是 Google 开发的表达式语言，具有类型安全、高性能、线程安全等特性。
//
// 表达式针对一行工程特征求值，变量：
//   - row：特征名 → 数值，例如 row.forty_yard_dash < 4.5
//   - position：当前位置（"qb" / "rb" / "wr"）
//
// 示例：
//   - `row.forty_yard_dash < 4.4 && row.vertical_jump > 36` → 顶级爆发力
//   - `position == "wr" && row.catch_radius > 2400` → 大接球半径外接手
//   - `row.trajectory_z > 2.0` → 高速成长曲线
type Eval struct {
	row      map[string]float64
	position string
	env      *cel.Env
}

// NewEval 创建一个新的 DSL 解释器。
// row 为一行工程特征，position 为运动员位置。
func NewEval(row map[string]float64, position string) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		row:      row,
		position: position,
		env:      env,
	}
}

// Evaluate 解析并执行 DSL 表达式，返回布尔结果。
// 表达式使用 CEL (Common Expression Language) 语法。
//
// 注意：CEL 访问不存在的 key 会报错，调用方可用 row.key != null 检查存在性；
// 编译或求值失败由调用方决定兜底行为（评分规则失败视为不命中）。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env not initialized")
	}

	// 编译表达式
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	// 创建程序
	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	// 执行表达式
	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	// 转换为布尔值
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]interface{} {
	row := make(map[string]interface{}, len(e.row))
	for k, v := range e.row {
		row[k] = v
	}
	return map[string]interface{}{
		"row":      row,
		"position": e.position,
	}
}
