package engine

import (
	"context"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jsonmapper/integration-mapper/expression"
	"github.com/jsonmapper/integration-mapper/fieldpath"
	"github.com/jsonmapper/integration-mapper/transform"
	"github.com/jsonmapper/integration-mapper/types"
)

type IEngineClient interface {
	Apply(ctx context.Context, plan Plan, source any) (*types.ApplyResult, error)
}

// Plan is what one engine run applies: the ordered mappings and the optional
// gating condition.
type Plan struct {
	Mappings  []types.Mapping
	Condition string
}

func PlanFor(definition *types.IntegrationDefinition) Plan {
	return Plan{
		Mappings:  definition.Mappings,
		Condition: definition.Condition,
	}
}

type EngineClient struct {
	Evaluator expression.IEvaluator
	Logger    *logrus.Logger
}

func NewEngineClient(evaluator expression.IEvaluator, logger *logrus.Logger) *EngineClient {
	return &EngineClient{
		Evaluator: evaluator,
		Logger:    logger,
	}
}

// Apply runs plan against source. The result is skipped when the condition
// is falsy. The first failing mapping halts the run and no output is
// returned with the error. source is never modified.
func (engineClient *EngineClient) Apply(ctx context.Context, plan Plan, source any) (*types.ApplyResult, error) {
	start := time.Now()
	result := &types.ApplyResult{}

	if err := ctx.Err(); err != nil {
		return nil, &types.EngineError{Err: errors.Wrap(err, "run cancelled")}
	}

	fields := fieldpath.FlattenValue(source)
	if engineClient.Logger.IsLevelEnabled(logrus.TraceLevel) {
		engineClient.Logger.Tracef("Flattened source fields:\n%s", spew.Sdump(fields))
	}

	if strings.TrimSpace(plan.Condition) != "" {
		passed, err := engineClient.Evaluator.EvaluateCondition(ctx, plan.Condition, fieldpath.FieldMap(fields))
		if err != nil {
			engineClient.Logger.Debugf("Condition failed: %v", err)
			return nil, &types.EngineError{Err: err}
		}
		result.ConditionResult = &passed

		if !passed {
			engineClient.Logger.Infof("Condition evaluated to false, skipping %d mappings", len(plan.Mappings))
			result.Skipped = true
			result.TransformationTime = time.Since(start)
			return result, nil
		}
	}

	output := map[string]any{}
	for _, mapping := range plan.Mappings {
		if err := ctx.Err(); err != nil {
			return nil, &types.EngineError{MappingID: mapping.ID, Target: mapping.Target, Err: errors.Wrap(err, "run cancelled")}
		}

		if mapping.IsInert() {
			engineClient.Logger.Debugf("Skipping inert mapping %s", mapping.ID)
			result.InertMappingIDs = append(result.InertMappingIDs, mapping.ID)
			continue
		}

		value, err := engineClient.resolve(ctx, mapping, source)
		if err != nil {
			engineClient.Logger.Debugf("Mapping %s to %s failed: %v", mapping.ID, mapping.Target, err)
			return nil, &types.EngineError{MappingID: mapping.ID, Target: mapping.Target, Err: err}
		}

		engineClient.Logger.Tracef("Mapping %s writes %s", mapping.ID, mapping.Target)
		fieldpath.Write(output, mapping.Target, fieldpath.Clone(value))
		result.Applied++
	}

	result.Output = output
	result.TransformationTime = time.Since(start)
	engineClient.Logger.Debugf("Applied %d of %d mappings in %s", result.Applied, len(plan.Mappings), result.TransformationTime)
	return result, nil
}

func (engineClient *EngineClient) resolve(ctx context.Context, mapping types.Mapping, source any) (any, error) {
	if mapping.Transform.ID.IsCustom() {
		fields := fieldpath.Restrict(source, mapping.SourceFields)
		value, err := engineClient.Evaluator.EvaluateValue(ctx, mapping.Code, fields)
		if err != nil {
			var expressionErr *types.ExpressionError
			if errors.As(err, &expressionErr) && expressionErr.Subject == "" {
				expressionErr.Subject = string(mapping.Target)
			}
			return nil, err
		}
		return value, nil
	}

	value, _ := fieldpath.Read(source, mapping.Source)
	transformed, err := transform.Apply(mapping.Transform.ID, value, mapping.Transform.Params...)
	if err != nil {
		var transformErr *types.TransformError
		if errors.As(err, &transformErr) {
			transformErr.Target = mapping.Target
		}
		return nil, err
	}
	return transformed, nil
}
