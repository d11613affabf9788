// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type Method string

const (
	MethodKeyCreate     Method = "key-create"
	MethodAccountCreate Method = "account-create"
	MethodIncrease      Method = "increase"
	MethodDecrease      Method = "decrease"
	MethodCount         Method = "count"
)

type Plan struct {
	// A description of the plan.
	Description string `json:"description" yaml:"description"`
	// The steps to run in order. (required)
	Steps []Step `json:"steps" yaml:"steps"`
}

type Step struct {
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// The command to run. (required)
	Method Method `json:"method" yaml:"method"`
	// The name of the key the command acts on. (required)
	Key string `json:"key" yaml:"key"`
	// The amount for increase and decrease steps.
	Amount uint32 `json:"amount,omitempty" yaml:"amount,omitempty"`
	// Lamports funded by account-create steps.
	Lamports uint64 `json:"lamports,omitempty" yaml:"lamports,omitempty"`
	// Define required assertions against the counter after this step.
	Require *Require `json:"require,omitempty" yaml:"require,omitempty"`
}

type Require struct {
	// The operator to use for the assertion.
	Operator Operator `json:"operator" yaml:"operator"`
	// The value to compare the counter against.
	Value uint32 `json:"value" yaml:"value"`
}

type Operator string

const (
	NumericGt Operator = ">"
	NumericLt Operator = "<"
	NumericGe Operator = ">="
	NumericLe Operator = "<="
	NumericEq Operator = "=="
	NumericNe Operator = "!="
)

func (r *Require) check(actual uint32) (bool, error) {
	switch r.Operator {
	case NumericGt:
		return actual > r.Value, nil
	case NumericLt:
		return actual < r.Value, nil
	case NumericGe:
		return actual >= r.Value, nil
	case NumericLe:
		return actual <= r.Value, nil
	case NumericEq:
		return actual == r.Value, nil
	case NumericNe:
		return actual != r.Value, nil
	default:
		return false, fmt.Errorf("%w: invalid assertion operator %q", ErrInvalidStep, r.Operator)
	}
}

// Response reports the outcome of one step.
type Response struct {
	// The index of the step that generated this response.
	ID      int      `json:"id"`
	Address string   `json:"address,omitempty"`
	TxID    string   `json:"txId,omitempty"`
	Count   *uint32  `json:"count,omitempty"`
	Logs    []string `json:"logs,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// UnmarshalPlan parses a JSON or YAML plan.
func UnmarshalPlan(b []byte) (*Plan, error) {
	var p Plan
	switch {
	case isJSON(b):
		if err := json.Unmarshal(b, &p); err != nil {
			return nil, err
		}
	case isYAML(b):
		if err := yaml.Unmarshal(b, &p); err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidFormat
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return &p, nil
}

func isJSON(b []byte) bool {
	var js map[string]interface{}
	return json.Unmarshal(b, &js) == nil
}

func isYAML(b []byte) bool {
	var y map[string]interface{}
	return yaml.Unmarshal(b, &y) == nil
}

func (p *Plan) Verify() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: no steps found", ErrInvalidPlan)
	}
	for i, step := range p.Steps {
		if len(step.Key) == 0 {
			return fmt.Errorf("%w %d: %w: key", ErrInvalidStep, i, ErrMissingArgument)
		}
		switch step.Method {
		case MethodKeyCreate, MethodAccountCreate, MethodIncrease, MethodDecrease, MethodCount:
		default:
			return fmt.Errorf("%w %d: unknown method %q", ErrInvalidStep, i, step.Method)
		}
	}
	return nil
}

// RunPlan runs every step of [p] and hands each response to [onResponse].
// A failed step is reported in its response and does not stop the plan; a
// failed assertion does.
func (h *Handler) RunPlan(ctx context.Context, p *Plan, onResponse func(*Response) error) error {
	h.log.Info("running plan",
		zap.String("description", p.Description),
		zap.Int("steps", len(p.Steps)),
	)
	for i, step := range p.Steps {
		h.log.Debug("running step",
			zap.Int("step", i),
			zap.String("method", string(step.Method)),
			zap.String("key", step.Key),
		)
		resp := &Response{ID: i}
		if err := h.runStep(ctx, &step, resp); err != nil {
			resp.Error = err.Error()
		}
		if err := onResponse(resp); err != nil {
			return err
		}
		if step.Require == nil {
			continue
		}
		count, err := h.Count(ctx, step.Key)
		if err != nil {
			return err
		}
		ok, err := step.Require.check(count)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: step %d: count %d %s %d", ErrAssertionFailed, i, count, step.Require.Operator, step.Require.Value)
		}
	}
	return nil
}

func (h *Handler) runStep(ctx context.Context, step *Step, resp *Response) error {
	switch step.Method {
	case MethodKeyCreate:
		addr, err := h.KeyCreate(ctx, step.Key)
		if err != nil {
			return err
		}
		resp.Address = addr.String()
	case MethodAccountCreate:
		addr, err := h.AccountCreate(ctx, step.Key, step.Lamports)
		if err != nil {
			return err
		}
		resp.Address = addr.String()
	case MethodIncrease, MethodDecrease:
		f := h.Increase
		if step.Method == MethodDecrease {
			f = h.Decrease
		}
		result, err := f(ctx, step.Key, step.Amount)
		if result != nil {
			resp.TxID = result.TxID.String()
			resp.Logs = result.Logs
		}
		if err != nil {
			return err
		}
	case MethodCount:
		count, err := h.Count(ctx, step.Key)
		if err != nil {
			return err
		}
		resp.Count = &count
	}
	return nil
}
