// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/countervm/counter"
)

const yamlPlan = `
description: wrap around zero
steps:
  - method: key-create
    key: alice
  - method: account-create
    key: alice
  - method: increase
    key: alice
    amount: 1
    require:
      operator: "=="
      value: 1
  - method: decrease
    key: alice
    amount: 2
    require:
      operator: "=="
      value: 4294967295
  - method: count
    key: alice
`

func TestUnmarshalPlan(t *testing.T) {
	require := require.New(t)

	p, err := UnmarshalPlan([]byte(yamlPlan))
	require.NoError(err)
	require.Equal("wrap around zero", p.Description)
	require.Len(p.Steps, 5)
	require.Equal(MethodDecrease, p.Steps[3].Method)
	require.Equal(uint32(2), p.Steps[3].Amount)
	require.Equal(NumericEq, p.Steps[3].Require.Operator)

	p, err = UnmarshalPlan([]byte(`{"steps": [{"method": "count", "key": "alice"}]}`))
	require.NoError(err)
	require.Len(p.Steps, 1)

	_, err = UnmarshalPlan([]byte(`{"steps": []}`))
	require.ErrorIs(err, ErrInvalidPlan)
	_, err = UnmarshalPlan([]byte(`{"steps": [{"method": "reset", "key": "alice"}]}`))
	require.ErrorIs(err, ErrInvalidStep)
	_, err = UnmarshalPlan([]byte(`{"steps": [{"method": "count"}]}`))
	require.ErrorIs(err, ErrMissingArgument)
	_, err = UnmarshalPlan([]byte(`not a plan`))
	require.ErrorIs(err, ErrInvalidFormat)
}

func TestRunPlan(t *testing.T) {
	require := require.New(t)
	h := newTestHandler(t)

	p, err := UnmarshalPlan([]byte(yamlPlan))
	require.NoError(err)

	var responses []*Response
	require.NoError(h.RunPlan(context.Background(), p, func(r *Response) error {
		responses = append(responses, r)
		return nil
	}))
	require.Len(responses, 5)
	for i, r := range responses {
		require.Equal(i, r.ID)
		require.Empty(r.Error)
	}
	require.NotEmpty(responses[0].Address)
	require.NotEmpty(responses[2].TxID)
	require.Contains(responses[3].Logs, counter.NewDecrease(2).String())
	require.Equal(uint32(4294967295), *responses[4].Count)
}

func TestRunPlanAssertion(t *testing.T) {
	require := require.New(t)
	h := newTestHandler(t)

	p := &Plan{Steps: []Step{
		{Method: MethodKeyCreate, Key: "alice"},
		{Method: MethodAccountCreate, Key: "alice"},
		{Method: MethodIncrease, Key: "alice", Amount: 5, Require: &Require{Operator: NumericGt, Value: 5}},
	}}
	err := h.RunPlan(context.Background(), p, func(*Response) error { return nil })
	require.ErrorIs(err, ErrAssertionFailed)
}

func TestRunPlanStepError(t *testing.T) {
	require := require.New(t)
	h := newTestHandler(t)

	p := &Plan{Steps: []Step{
		{Method: MethodIncrease, Key: "missing", Amount: 1},
		{Method: MethodKeyCreate, Key: "alice"},
	}}
	var responses []*Response
	require.NoError(h.RunPlan(context.Background(), p, func(r *Response) error {
		responses = append(responses, r)
		return nil
	}))
	require.Len(responses, 2)
	require.Contains(responses[0].Error, ErrKeyNotFound.Error())
	require.Empty(responses[1].Error)
}
