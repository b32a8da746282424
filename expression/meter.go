package expression

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// DefaultMaxSteps bounds the work of one evaluation. A step is one loop
// iteration, one function call, or one element or byte of a value produced
// by a function or a loop body.
const DefaultMaxSteps = 100000

const (
	iterateFunction = "__iterate"
	emitFunction    = "__emit"
)

// meter counts the steps of a single evaluation. It is only touched by the
// goroutine running that evaluation.
type meter struct {
	ctx       context.Context
	limit     int64
	remaining int64
	exceeded  bool
}

func newMeter(ctx context.Context, limit int) *meter {
	return &meter{
		ctx:       ctx,
		limit:     int64(limit),
		remaining: int64(limit),
	}
}

func (m *meter) charge(steps int64) error {
	if err := m.reserve(steps); err != nil {
		return err
	}
	m.remaining -= steps
	return nil
}

// reserve fails when steps would not fit in what is left, without spending
// them.
func (m *meter) reserve(steps int64) error {
	if err := m.ctx.Err(); err != nil {
		return err
	}
	if m.exceeded || steps > m.remaining {
		m.exceeded = true
		return m.limitError()
	}
	return nil
}

func (m *meter) limitError() error {
	return fmt.Errorf("expression exceeded %d steps", m.limit)
}

// meterLoops routes the collection, key and value of every for expression
// through the metering functions, so each iteration is paid for before the
// loop body runs again.
func meterLoops(expr hclsyntax.Expression) {
	hclsyntax.VisitAll(expr, func(node hclsyntax.Node) hcl.Diagnostics {
		forExpr, ok := node.(*hclsyntax.ForExpr)
		if !ok {
			return nil
		}
		forExpr.CollExpr = meteredCall(iterateFunction, forExpr.CollExpr)
		forExpr.ValExpr = meteredCall(emitFunction, forExpr.ValExpr)
		if forExpr.KeyExpr != nil {
			forExpr.KeyExpr = meteredCall(emitFunction, forExpr.KeyExpr)
		}
		return nil
	})
}

func meteredCall(name string, expr hclsyntax.Expression) *hclsyntax.FunctionCallExpr {
	return &hclsyntax.FunctionCallExpr{
		Name:            name,
		Args:            []hclsyntax.Expression{expr},
		NameRange:       expr.Range(),
		OpenParenRange:  expr.Range(),
		CloseParenRange: expr.Range(),
	}
}

// functionTable returns the functions for one evaluation, each charging m.
func (m *meter) functionTable() map[string]function.Function {
	table := map[string]function.Function{
		iterateFunction: m.passThrough(func(value cty.Value) int64 {
			if value.CanIterateElements() {
				return int64(value.LengthInt())
			}
			return 1
		}),
		emitFunction: m.passThrough(valueSize),
	}
	for name, fn := range functions {
		table[name] = m.wrap(name, fn)
	}
	for name, fn := range unmeteredFunctions {
		table[name] = fn
	}
	return table
}

func (m *meter) passThrough(cost func(cty.Value) int64) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{
				Name:             "value",
				Type:             cty.DynamicPseudoType,
				AllowNull:        true,
				AllowDynamicType: true,
			},
		},
		Type: func(args []cty.Value) (cty.Type, error) {
			return args[0].Type(), nil
		},
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			if args[0].IsNull() {
				return args[0], m.charge(1)
			}
			return args[0], m.charge(cost(args[0]))
		},
	})
}

func (m *meter) wrap(name string, fn function.Function) function.Function {
	estimate := estimates[name]
	return function.New(&function.Spec{
		Params:   fn.Params(),
		VarParam: fn.VarParam(),
		Type: func(args []cty.Value) (cty.Type, error) {
			return fn.ReturnTypeForValues(args)
		},
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			if err := m.charge(1); err != nil {
				return cty.NilVal, err
			}
			if estimate != nil {
				if err := m.reserve(estimate(args)); err != nil {
					return cty.NilVal, err
				}
			}
			result, err := fn.Call(args)
			if err != nil {
				return cty.NilVal, err
			}
			return result, m.charge(valueSize(result))
		},
	})
}

// valueSize is one step per scalar plus one per string byte, summed over
// every key and element of a collection.
func valueSize(value cty.Value) int64 {
	if value.IsMarked() {
		value, _ = value.UnmarkDeep()
	}
	if !value.IsKnown() || value.IsNull() {
		return 1
	}

	switch {
	case value.Type() == cty.String:
		return 1 + int64(len(value.AsString()))
	case value.CanIterateElements():
		size := int64(1)
		for it := value.ElementIterator(); it.Next(); {
			key, element := it.Element()
			size += valueSize(key) + valueSize(element)
		}
		return size
	default:
		return 1
	}
}

// estimates bound the result size of functions whose output can be far
// larger than their input, checked before they allocate.
var estimates = map[string]func(args []cty.Value) int64{
	"format":  estimateFormat,
	"join":    estimateJoin,
	"replace": estimateReplace,
}

var formatWidth = regexp.MustCompile(`%(?:\[\d+\])?[-+# 0]*(\d*)(?:\.(\d*))?`)

func estimateFormat(args []cty.Value) int64 {
	format, ok := knownString(args, 0)
	if !ok {
		return 0
	}

	total := int64(len(format))
	for _, match := range formatWidth.FindAllStringSubmatch(format, -1) {
		for _, digits := range match[1:] {
			if digits == "" {
				continue
			}
			width, err := strconv.ParseInt(digits, 10, 64)
			if err != nil {
				return 1 << 62
			}
			total += width
		}
	}
	for _, arg := range args[1:] {
		total += valueSize(arg)
	}
	return total
}

func estimateJoin(args []cty.Value) int64 {
	separator, ok := knownString(args, 0)
	if !ok {
		return 0
	}

	total := int64(0)
	for _, list := range args[1:] {
		if !list.IsKnown() || list.IsNull() || !list.CanIterateElements() {
			continue
		}
		total += valueSize(list) + int64(list.LengthInt())*int64(len(separator))
	}
	return total
}

func estimateReplace(args []cty.Value) int64 {
	str, ok := knownString(args, 0)
	if !ok {
		return 0
	}
	substr, ok := knownString(args, 1)
	if !ok {
		return 0
	}
	replacement, ok := knownString(args, 2)
	if !ok {
		return 0
	}

	var matches int64
	if len(substr) > 1 && strings.HasPrefix(substr, "/") && strings.HasSuffix(substr, "/") {
		matches = int64(utf8.RuneCountInString(str)) + 1
	} else {
		matches = int64(strings.Count(str, substr))
	}
	return int64(len(str)) + matches*int64(len(replacement))
}

func knownString(args []cty.Value, index int) (string, bool) {
	if index >= len(args) {
		return "", false
	}
	value := args[index]
	if value.IsMarked() {
		value, _ = value.Unmark()
	}
	if !value.IsKnown() || value.IsNull() || value.Type() != cty.String {
		return "", false
	}
	return value.AsString(), true
}
