package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonmapper/integration-mapper/expression"
	"github.com/jsonmapper/integration-mapper/fieldpath"
	"github.com/jsonmapper/integration-mapper/types"
)

type mockEvaluator struct {
	ConditionResult bool
	ConditionErr    error
	Value           any
	ValueErr        error
	ConditionCalls  int
	ValueCalls      int
	Fields          []map[string]any
}

func (m *mockEvaluator) EvaluateCondition(ctx context.Context, code string, fields map[string]any) (bool, error) {
	m.ConditionCalls++
	m.Fields = append(m.Fields, fields)
	return m.ConditionResult, m.ConditionErr
}

func (m *mockEvaluator) EvaluateValue(ctx context.Context, code string, fields map[string]any) (any, error) {
	m.ValueCalls++
	m.Fields = append(m.Fields, fields)
	return m.Value, m.ValueErr
}

func newHclEngine() *EngineClient {
	logger := logrus.New()
	return NewEngineClient(expression.NewHclEvaluator(time.Second, 0, 0, logger), logger)
}

func parseSource(t *testing.T, raw string) any {
	t.Helper()
	doc, err := fieldpath.Parse([]byte(raw), types.DocumentRoleSource)
	require.NoError(t, err)
	return doc
}

func TestEngineClient_Apply_EndToEnd(t *testing.T) {
	source := parseSource(t, `{"event":"user.created","data":{"email":"A@B.com"}}`)
	plan := Plan{Mappings: []types.Mapping{{
		ID:        "m1",
		Source:    "data.email",
		Target:    "user.email",
		Transform: types.TransformSpec{ID: types.TransformLowercase},
	}}}

	result, err := newHclEngine().Apply(context.Background(), plan, source)

	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Nil(t, result.ConditionResult)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, map[string]any{"user": map[string]any{"email": "a@b.com"}}, result.Output)
}

func TestEngineClient_Apply_IsIdempotent(t *testing.T) {
	source := parseSource(t, `{"a":{"b":"x","c":[1,2]},"d":"  y  ","n":"7"}`)
	plan := Plan{Mappings: []types.Mapping{
		{ID: "m1", Source: "a", Target: "copy.a"},
		{ID: "m2", Source: "d", Target: "copy.d", Transform: types.TransformSpec{ID: types.TransformTrim}},
		{ID: "m3", Source: "n", Target: "n", Transform: types.TransformSpec{ID: types.TransformNumber}},
		{ID: "m4", Source: "a.c", Target: "joined", Transform: types.TransformSpec{ID: types.TransformJoin, Params: []string{"+"}}},
	}}
	engineClient := newHclEngine()

	first, err := engineClient.Apply(context.Background(), plan, source)
	require.NoError(t, err)
	second, err := engineClient.Apply(context.Background(), plan, source)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first.Output)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Output)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
	assert.JSONEq(t, `{"copy":{"a":{"b":"x","c":[1,2]},"d":"y"},"n":7,"joined":"1+2"}`, string(firstJSON))
}

func TestEngineClient_Apply_DoesNotModifySource(t *testing.T) {
	source := parseSource(t, `{"a":{"b":"x"}}`)
	plan := Plan{Mappings: []types.Mapping{
		{ID: "m1", Source: "a", Target: "out"},
		{ID: "m2", Source: "a.b", Target: "out.c", Transform: types.TransformSpec{ID: types.TransformUppercase}},
	}}

	result, err := newHclEngine().Apply(context.Background(), plan, source)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"out": map[string]any{"b": "x", "c": "X"}}, result.Output)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": "x"}}, source)
}

func TestEngineClient_Apply_ConditionFalseSkips(t *testing.T) {
	evaluator := &mockEvaluator{ConditionResult: false}
	engineClient := NewEngineClient(evaluator, logrus.New())
	plan := Plan{
		Condition: `fields.event == "user.deleted"`,
		Mappings: []types.Mapping{
			{ID: "m1", Source: "event", Target: "x"},
			{ID: "m2", Target: "y", SourceFields: []types.FieldRef{"event"}, Transform: types.TransformSpec{ID: types.TransformJavascript}, Code: "1"},
		},
	}

	result, err := engineClient.Apply(context.Background(), plan, map[string]any{"event": "user.created"})

	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Nil(t, result.Output)
	assert.Equal(t, 0, result.Applied)
	require.NotNil(t, result.ConditionResult)
	assert.False(t, *result.ConditionResult)
	assert.Equal(t, 1, evaluator.ConditionCalls)
	assert.Equal(t, 0, evaluator.ValueCalls)
	assert.Equal(t, []map[string]any{{"event": "user.created"}}, evaluator.Fields)
}

func TestEngineClient_Apply_ConditionTrueProceeds(t *testing.T) {
	source := parseSource(t, `{"event":"user.created","data":{"email":"A@B.com"}}`)
	plan := Plan{
		Condition: `fields["event"] == "user.created"`,
		Mappings:  []types.Mapping{{ID: "m1", Source: "data.email", Target: "email"}},
	}

	result, err := newHclEngine().Apply(context.Background(), plan, source)

	require.NoError(t, err)
	require.NotNil(t, result.ConditionResult)
	assert.True(t, *result.ConditionResult)
	assert.Equal(t, map[string]any{"email": "A@B.com"}, result.Output)
}

func TestEngineClient_Apply_ConditionError(t *testing.T) {
	plan := Plan{
		Condition: `fields[`,
		Mappings:  []types.Mapping{{ID: "m1", Source: "a", Target: "x"}},
	}

	result, err := newHclEngine().Apply(context.Background(), plan, map[string]any{"a": "1"})

	assert.Nil(t, result)
	var engineErr *types.EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.Empty(t, engineErr.Target)
	var expressionErr *types.ExpressionError
	require.True(t, errors.As(err, &expressionErr))
	assert.Equal(t, types.ConditionSubject, expressionErr.Subject)
	assert.Equal(t, types.ExpressionFailureSyntax, expressionErr.Reason)
}

func TestEngineClient_Apply_LastWriteWins(t *testing.T) {
	plan := Plan{Mappings: []types.Mapping{
		{ID: "m1", Source: "first", Target: "x.y"},
		{ID: "m2", Source: "second", Target: "x.y"},
	}}

	result, err := newHclEngine().Apply(context.Background(), plan, map[string]any{"first": "one", "second": "two"})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": map[string]any{"y": "two"}}, result.Output)
}

func TestEngineClient_Apply_BranchPointLastWriteWins(t *testing.T) {
	plan := Plan{Mappings: []types.Mapping{
		{ID: "m1", Source: "first", Target: "a"},
		{ID: "m2", Source: "second", Target: "a.b"},
	}}

	result, err := newHclEngine().Apply(context.Background(), plan, map[string]any{"first": "scalar", "second": "nested"})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": "nested"}}, result.Output)
}

func TestEngineClient_Apply_HaltsOnFirstFailure(t *testing.T) {
	plan := Plan{Mappings: []types.Mapping{
		{ID: "m1", Source: "name", Target: "out.name"},
		{ID: "m2", Source: "when", Target: "out.when", Transform: types.TransformSpec{ID: types.TransformDate}},
		{ID: "m3", Source: "name", Target: "out.after"},
	}}

	result, err := newHclEngine().Apply(context.Background(), plan, map[string]any{"name": "ada", "when": "not a date"})

	assert.Nil(t, result)
	var engineErr *types.EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, "m2", engineErr.MappingID)
	assert.Equal(t, types.FieldRef("out.when"), engineErr.Target)
	var transformErr *types.TransformError
	require.True(t, errors.As(err, &transformErr))
	assert.Equal(t, types.FieldRef("out.when"), transformErr.Target)
}

func TestEngineClient_Apply_CustomTransform(t *testing.T) {
	source := parseSource(t, `{"user":{"first":"Ada","last":"Lovelace"},"secret":"s"}`)
	plan := Plan{Mappings: []types.Mapping{{
		ID:           "m1",
		SourceFields: []types.FieldRef{"user.first", "user.last"},
		Target:       "fullName",
		Transform:    types.TransformSpec{ID: types.TransformJavascript},
		Code:         `return fields["user.first"] + " " + fields["user.last"];`,
	}}}

	_, err := newHclEngine().Apply(context.Background(), plan, source)
	require.Error(t, err)

	plan.Mappings[0].Code = `format("%s %s", fields["user.first"], fields["user.last"])`
	result, err := newHclEngine().Apply(context.Background(), plan, source)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"fullName": "Ada Lovelace"}, result.Output)
}

func TestEngineClient_Apply_CustomTransformOnlySeesSourceFields(t *testing.T) {
	evaluator := &mockEvaluator{ConditionResult: true, Value: "v"}
	engineClient := NewEngineClient(evaluator, logrus.New())
	plan := Plan{Mappings: []types.Mapping{{
		ID:           "m1",
		SourceFields: []types.FieldRef{"a", "missing"},
		Target:       "x",
		Transform:    types.TransformSpec{ID: types.TransformJavascript},
		Code:         "fields.a",
	}}}

	result, err := engineClient.Apply(context.Background(), plan, map[string]any{"a": "1", "b": "2"})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "v"}, result.Output)
	assert.Equal(t, []map[string]any{{"a": "1", "missing": nil}}, evaluator.Fields)
}

func TestEngineClient_Apply_CustomTransformErrorNamesTarget(t *testing.T) {
	plan := Plan{Mappings: []types.Mapping{{
		ID:           "m1",
		SourceFields: []types.FieldRef{"a"},
		Target:       "x.y",
		Transform:    types.TransformSpec{ID: types.TransformJavascript},
		Code:         `fields.nope`,
	}}}

	_, err := newHclEngine().Apply(context.Background(), plan, map[string]any{"a": "1"})

	var expressionErr *types.ExpressionError
	require.True(t, errors.As(err, &expressionErr))
	assert.Equal(t, "x.y", expressionErr.Subject)
	assert.Equal(t, types.ExpressionFailureRuntime, expressionErr.Reason)
}

func TestEngineClient_Apply_SkipsInertMappings(t *testing.T) {
	evaluator := &mockEvaluator{}
	engineClient := NewEngineClient(evaluator, logrus.New())
	plan := Plan{Mappings: []types.Mapping{
		{ID: "no-target", Source: "a"},
		{ID: "no-source", Target: "x"},
		{ID: "no-code", Target: "y", SourceFields: []types.FieldRef{"a"}, Transform: types.TransformSpec{ID: types.TransformJavascript}},
		{ID: "ok", Source: "a", Target: "z"},
	}}

	result, err := engineClient.Apply(context.Background(), plan, map[string]any{"a": "1"})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"z": "1"}, result.Output)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, []string{"no-target", "no-source", "no-code"}, result.InertMappingIDs)
	assert.Equal(t, 0, evaluator.ValueCalls)
	assert.Equal(t, 0, evaluator.ConditionCalls)
}

func TestEngineClient_Apply_MissingSourceWritesNull(t *testing.T) {
	plan := Plan{Mappings: []types.Mapping{{ID: "m1", Source: "missing", Target: "x", Transform: types.TransformSpec{ID: types.TransformUppercase}}}}

	result, err := newHclEngine().Apply(context.Background(), plan, map[string]any{})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": nil}, result.Output)
}

func TestEngineClient_Apply_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	plan := Plan{Mappings: []types.Mapping{{ID: "m1", Source: "a", Target: "x"}}}

	result, err := newHclEngine().Apply(ctx, plan, map[string]any{"a": "1"})

	assert.Nil(t, result)
	var engineErr *types.EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEngineClient_Apply_EvaluatorFailureHasNoOutput(t *testing.T) {
	evaluator := &mockEvaluator{ValueErr: &types.ExpressionError{Reason: types.ExpressionFailureTimeout, Err: context.DeadlineExceeded}}
	engineClient := NewEngineClient(evaluator, logrus.New())
	plan := Plan{Mappings: []types.Mapping{
		{ID: "m1", Source: "a", Target: "x"},
		{ID: "m2", SourceFields: []types.FieldRef{"a"}, Target: "y", Transform: types.TransformSpec{ID: types.TransformJavascript}, Code: "loop"},
	}}

	result, err := engineClient.Apply(context.Background(), plan, map[string]any{"a": "1"})

	assert.Nil(t, result)
	var expressionErr *types.ExpressionError
	require.True(t, errors.As(err, &expressionErr))
	assert.Equal(t, types.ExpressionFailureTimeout, expressionErr.Reason)
	assert.Equal(t, "y", expressionErr.Subject)
}

func TestPlanFor(t *testing.T) {
	definition := &types.IntegrationDefinition{
		Condition: "true",
		Mappings:  []types.Mapping{{ID: "m1"}},
	}

	plan := PlanFor(definition)

	assert.Equal(t, "true", plan.Condition)
	assert.Equal(t, definition.Mappings, plan.Mappings)
}
