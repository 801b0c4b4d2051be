// internal/service/order/infrastructure/rule/cel_policy.go
package rule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

// ErrPolicyRejected 表示请求被运营配置的准入规则拒绝。
var ErrPolicyRejected = errors.New("request rejected by purchase policy")

// CELPolicyAdapter 是 port.PurchasePolicy 的 CEL 实现。
// 运营用一条 CEL 表达式描述下单准入规则（比如单笔商品数上限），
// 表达式在服务启动时编译一次，请求进来只做求值。
type CELPolicyAdapter struct {
	expression string
	program    cel.Program
}

// NewCELPolicyAdapter 编译给定的表达式并返回适配器。
// 表达式可以引用 user_id、product_count 和 distinct_product_count，
// 求值结果必须是布尔值。
func NewCELPolicyAdapter(expression string) (*CELPolicyAdapter, error) {
	env, err := cel.NewEnv(
		cel.Variable("user_id", cel.StringType),
		cel.Variable("product_count", cel.IntType),
		cel.Variable("distinct_product_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, iss := env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("invalid purchase policy expression %q: %w", expression, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("purchase policy expression %q must evaluate to bool, got %s", expression, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build CEL program: %w", err)
	}

	return &CELPolicyAdapter{expression: expression, program: program}, nil
}

// Allow 实现了 port.PurchasePolicy 接口。
func (a *CELPolicyAdapter) Allow(ctx context.Context, userID string, productIDs []string) error {
	distinct := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		distinct[id] = struct{}{}
	}

	out, _, err := a.program.Eval(map[string]interface{}{
		"user_id":                userID,
		"product_count":          int64(len(productIDs)),
		"distinct_product_count": int64(len(distinct)),
	})
	if err != nil {
		return fmt.Errorf("purchase policy evaluation failed: %w", err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return fmt.Errorf("purchase policy %q returned non-bool value %v", a.expression, out.Value())
	}
	if !allowed {
		return ErrPolicyRejected
	}
	return nil
}
