// Package formula provides the pluggable arithmetic expression evaluator used by
// computed variables. The default implementation is backed by expr-lang/expr.
package formula

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// =============================================================================
// EVALUATOR CONTRACT
// =============================================================================

// Parser turns a formula string into an Expression.
type Parser interface {
	Parse(formula string) (Expression, error)
}

// Expression is a parsed formula that can be evaluated against a numeric scope.
// Evaluate fails on an unknown identifier or when the result is not numeric.
type Expression interface {
	Evaluate(scope map[string]float64) (float64, error)
	Source() string
}

// =============================================================================
// EXPR-LANG IMPLEMENTATION
// =============================================================================

// ExprParser is the default Parser.
type ExprParser struct{}

// NewParser returns the default expression parser.
func NewParser() *ExprParser {
	return &ExprParser{}
}

// Parse checks the formula syntax. Identifiers are resolved at evaluation time.
func (p *ExprParser) Parse(formula string) (Expression, error) {
	src := strings.TrimSpace(formula)
	if src == "" {
		return nil, fmt.Errorf("formula is empty")
	}
	if _, err := parser.Parse(src); err != nil {
		return nil, fmt.Errorf("syntax error in %q: %w", src, err)
	}
	return &exprExpression{source: src}, nil
}

// mathBuiltins are the only expr builtins a formula may call. A scope
// variable with the same name shadows the builtin.
var mathBuiltins = []string{"abs", "ceil", "floor", "max", "min", "round"}

const modFunc = "_mod"

// numericPatcher rewrites integer literals as floats so formulas never use
// wrapping int arithmetic, and turns a % b into a call to math.Mod.
type numericPatcher struct{}

func (numericPatcher) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IntegerNode:
		ast.Patch(node, &ast.FloatNode{Value: float64(n.Value)})
	case *ast.BinaryNode:
		if n.Operator == "%" {
			ast.Patch(node, &ast.CallNode{
				Callee:    &ast.IdentifierNode{Value: modFunc},
				Arguments: []ast.Node{n.Left, n.Right},
			})
		}
	}
}

func mod(params ...any) (any, error) {
	return math.Mod(params[0].(float64), params[1].(float64)), nil
}

func compileOptions(env map[string]any) []expr.Option {
	opts := []expr.Option{
		expr.Env(env),
		expr.DisableAllBuiltins(),
		expr.Function(modFunc, mod, new(func(float64, float64) float64)),
		expr.Patch(numericPatcher{}),
	}
	for _, name := range mathBuiltins {
		if _, shadowed := env[name]; !shadowed {
			opts = append(opts, expr.EnableBuiltin(name))
		}
	}
	return opts
}

type exprExpression struct {
	source string
}

func (e *exprExpression) Source() string { return e.source }

// Evaluate compiles the formula against the scope in strict mode so that any
// identifier missing from the scope is reported, then runs it. Arithmetic is
// always float64.
func (e *exprExpression) Evaluate(scope map[string]float64) (float64, error) {
	env := make(map[string]any, len(scope))
	for k, v := range scope {
		env[k] = v
	}

	program, err := expr.Compile(e.source, compileOptions(env)...)
	if err != nil {
		return 0, fmt.Errorf("cannot resolve %q: %w", e.source, err)
	}
	return run(program, env)
}

func run(program *vm.Program, env map[string]any) (float64, error) {
	out, err := expr.Run(program, env)
	if err != nil {
		return 0, err
	}
	return toFloat(out)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case nil:
		return 0, fmt.Errorf("formula produced no value")
	default:
		return 0, fmt.Errorf("formula produced non-numeric %T", v)
	}
}

// =============================================================================
// REFERENCE EXTRACTION
// =============================================================================

type identifierCollector struct {
	seen  map[string]bool
	names []string
}

func (c *identifierCollector) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok {
		if !c.seen[id.Value] {
			c.seen[id.Value] = true
			c.names = append(c.names, id.Value)
		}
	}
}

// References returns the distinct identifiers a formula refers to, in order of
// first appearance.
func References(formula string) ([]string, error) {
	tree, err := parser.Parse(strings.TrimSpace(formula))
	if err != nil {
		return nil, fmt.Errorf("syntax error in %q: %w", formula, err)
	}
	c := &identifierCollector{seen: make(map[string]bool)}
	ast.Walk(&tree.Node, c)
	return c.names, nil
}
