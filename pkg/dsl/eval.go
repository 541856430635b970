package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/recmin/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义行级变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("user", cel.StringType),
		cel.Variable("item", cel.StringType),
		cel.Variable("rating", cel.DoubleType),
		cel.Variable("timestamp", cel.DoubleType),
		cel.Variable("fields", cel.MapType(cel.StringType, cel.StringType)),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译后的行过滤表达式，使用 CEL (Common Expression Language)。
// 编译一次，可并发地对多行求值。
//
// 可用变量：
//   - user, item：string
//   - rating, timestamp：double（缺失列为 0）
//   - fields：原始列名 -> 原始字符串值
//
// 示例：
//   - `rating >= 3.0`
//   - `fields["country"] != "" && timestamp > 978300760.0`
//   - `!item.startsWith("test_")`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 解析并编译表达式，表达式必须返回布尔值。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return boolean, got %s", t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对一行交互记录求值。
func (p *Program) Eval(schema *core.Schema, row *core.Interaction) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(schema, row))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(schema *core.Schema, row *core.Interaction) map[string]any {
	fields := make(map[string]string, len(row.Fields))
	if schema != nil {
		for i, name := range schema.Header {
			if i < len(row.Fields) {
				fields[name] = row.Fields[i]
			}
		}
	}
	return map[string]any{
		"user":      row.User,
		"item":      row.Item,
		"rating":    row.Rating,
		"timestamp": row.Timestamp,
		"fields":    fields,
	}
}
