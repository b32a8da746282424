// Package expression evaluates operator-authored conditions and custom
// transforms in a restricted expression language.
//
// Code is an HCL native-syntax expression with a single variable, fields,
// holding the field map for the run. Only pure functions are available:
// there is no access to files, the environment or the network. Every
// evaluation runs under a timeout, a source-size ceiling and a node-count
// ceiling, and panics are recovered into errors. Loop iterations, function
// calls and the values they produce are counted against a step ceiling, and
// a run that exhausts it or outlives its timeout stops at its next step.
package expression

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/zclconf/go-cty/cty"

	"github.com/jsonmapper/integration-mapper/transform"
	"github.com/jsonmapper/integration-mapper/types"
)

const (
	DefaultTimeout  = time.Second
	DefaultMaxBytes = 4096
	DefaultMaxNodes = 512

	fieldsVariable = "fields"
	sourceName     = "expression"
)

type IEvaluator interface {
	EvaluateCondition(ctx context.Context, code string, fields map[string]any) (bool, error)
	EvaluateValue(ctx context.Context, code string, fields map[string]any) (any, error)
}

type HclEvaluator struct {
	Timeout  time.Duration
	MaxBytes int
	MaxNodes int
	MaxSteps int
	Logger   *logrus.Logger
}

func NewHclEvaluator(timeout time.Duration, maxBytes int, maxNodes int, logger *logrus.Logger) *HclEvaluator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return &HclEvaluator{
		Timeout:  timeout,
		MaxBytes: maxBytes,
		MaxNodes: maxNodes,
		MaxSteps: DefaultMaxSteps,
		Logger:   logger,
	}
}

// EvaluateCondition evaluates a gating condition. Empty code is true and
// non-boolean results are interpreted by truthiness.
func (evaluator *HclEvaluator) EvaluateCondition(ctx context.Context, code string, fields map[string]any) (bool, error) {
	if strings.TrimSpace(code) == "" {
		return true, nil
	}

	value, err := evaluator.evaluate(ctx, types.ConditionSubject, code, fields)
	if err != nil {
		return false, err
	}
	if value.Type() == cty.Bool && value.IsKnown() && !value.IsNull() {
		return value.True(), nil
	}

	result, err := toGo(value)
	if err != nil {
		return false, &types.ExpressionError{Subject: types.ConditionSubject, Reason: types.ExpressionFailureRuntime, Err: err}
	}
	return transform.Truthy(result), nil
}

// EvaluateValue evaluates a custom transform and returns its result as a
// JSON-compatible Go value.
func (evaluator *HclEvaluator) EvaluateValue(ctx context.Context, code string, fields map[string]any) (any, error) {
	value, err := evaluator.evaluate(ctx, "", code, fields)
	if err != nil {
		return nil, err
	}

	result, err := toGo(value)
	if err != nil {
		return nil, &types.ExpressionError{Reason: types.ExpressionFailureRuntime, Err: err}
	}
	return result, nil
}

type outcome struct {
	value cty.Value
	err   error
}

func (evaluator *HclEvaluator) evaluate(ctx context.Context, subject string, code string, fields map[string]any) (cty.Value, error) {
	fail := func(reason types.ExpressionFailure, err error) (cty.Value, error) {
		evaluator.Logger.Debugf("Expression %s failed (%s): %v", subjectName(subject), reason, err)
		return cty.NilVal, &types.ExpressionError{Subject: subject, Reason: reason, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(types.ExpressionFailureCancelled, err)
	}

	source := normalize(code)
	if len(source) > evaluator.MaxBytes {
		return fail(types.ExpressionFailureLimit, fmt.Errorf("expression is %d bytes, limit is %d", len(source), evaluator.MaxBytes))
	}

	expr, diags := hclsyntax.ParseExpression([]byte(source), sourceName, hcl.InitialPos)
	if diags.HasErrors() {
		return fail(types.ExpressionFailureSyntax, diags)
	}

	nodes := countNodes(expr)
	if nodes > evaluator.MaxNodes {
		return fail(types.ExpressionFailureLimit, fmt.Errorf("expression has %d nodes, limit is %d", nodes, evaluator.MaxNodes))
	}

	meterLoops(expr)

	variables, err := toCty(fields)
	if err != nil {
		return fail(types.ExpressionFailureRuntime, errors.Wrap(err, "fields cannot be bound"))
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, evaluator.Timeout)
	defer cancel()

	maxSteps := evaluator.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	steps := newMeter(timeoutCtx, maxSteps)
	evalContext := &hcl.EvalContext{
		Variables: map[string]cty.Value{fieldsVariable: variables},
		Functions: steps.functionTable(),
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				done <- outcome{err: &types.ExpressionError{Subject: subject, Reason: types.ExpressionFailurePanic, Err: fmt.Errorf("%v", recovered)}}
			}
		}()

		value, diags := expr.Value(evalContext)
		if diags.HasErrors() {
			done <- outcome{err: &types.ExpressionError{Subject: subject, Reason: types.ExpressionFailureRuntime, Err: diags}}
			return
		}
		done <- outcome{value: value}
	}()

	select {
	case result := <-done:
		if steps.exceeded {
			return fail(types.ExpressionFailureLimit, steps.limitError())
		}
		if result.err != nil {
			evaluator.Logger.Debugf("Expression %s failed: %v", subjectName(subject), result.err)
			return cty.NilVal, result.err
		}
		evaluator.Logger.Tracef("Expression %s evaluated to %s", subjectName(subject), result.value.GoString())
		return result.value, nil
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return fail(types.ExpressionFailureCancelled, ctx.Err())
		}
		return fail(types.ExpressionFailureTimeout, fmt.Errorf("expression did not finish within %s", evaluator.Timeout))
	}
}

var returnPrefix = regexp.MustCompile(`^return\s+`)

// normalize accepts JavaScript-style conditions such as
// "return fields.a === 1;".
func normalize(code string) string {
	source := strings.TrimSpace(code)
	source = strings.TrimSpace(strings.TrimSuffix(source, ";"))
	source = returnPrefix.ReplaceAllString(source, "")
	source = strings.ReplaceAll(source, "!==", "!=")
	source = strings.ReplaceAll(source, "===", "==")
	return source
}

func countNodes(expr hclsyntax.Expression) int {
	count := 0
	hclsyntax.VisitAll(expr, func(node hclsyntax.Node) hcl.Diagnostics {
		count++
		return nil
	})
	return count
}

func subjectName(subject string) string {
	if subject == "" {
		return "value"
	}
	return subject
}
