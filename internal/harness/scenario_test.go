package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldflow/internal/model"
)

func TestParseScenario(t *testing.T) {
	data := []byte(`
name: parse
description: Parses every section
world:
  accounts:
    - email: a@b.co
      password: secret12
      publishable_key: pk
  orders:
    - id: o1
      status: completed
      latitude: 1.5
  history:
    distance: 1200
    duration: 1h
  outage: trial_ended
  storage:
    ff.s: signIn
steps:
  - send: SelectTab
    args:
      tab: orders
  - fail:
      endpoint: get_orders
      error: expired
  - advance: 250ms
assertions:
  - type: calls
    target: api
    call: get_orders
    count: 2
`)
	s, err := ParseScenario(data)
	require.NoError(t, err)

	assert.Equal(t, "parse", s.Name)
	require.Len(t, s.World.Accounts, 1)
	assert.Equal(t, "pk", s.World.Accounts[0].PublishableKey)
	assert.Equal(t, 1.5, s.World.Orders[0].Latitude)
	assert.Equal(t, "1h", s.World.History.Duration)
	assert.Equal(t, "signIn", s.World.Storage["ff.s"])
	require.Len(t, s.Steps, 3)
	assert.Equal(t, map[string]any{"tab": "orders"}, s.Steps[0].Args)
	assert.Equal(t, &FailStep{Endpoint: "get_orders", Error: "expired"}, s.Steps[1].Fail)
	assert.Equal(t, 2, s.Assertions[0].Count)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"unknown field",
			"name: x\ndescription: y\nstepz: []\n",
			"field stepz not found",
		},
		{
			"missing name",
			"description: y\nsteps: [{settle: true}]\nassertions: [{type: alert}]\n",
			"name is required",
		},
		{
			"no steps",
			"name: x\ndescription: y\nassertions: [{type: alert}]\n",
			"steps list is required",
		},
		{
			"no assertions",
			"name: x\ndescription: y\nsteps: [{settle: true}]\n",
			"assertions list is required",
		},
		{
			"two operations",
			"name: x\ndescription: y\nsteps: [{settle: true, advance: 1s}]\nassertions: [{type: alert}]\n",
			"exactly one operation is required, got 2",
		},
		{
			"args without send",
			"name: x\ndescription: y\nsteps: [{settle: true, args: {a: 1}}]\nassertions: [{type: alert}]\n",
			"args are only valid with send",
		},
		{
			"unknown action",
			"name: x\ndescription: y\nsteps: [{send: Explode}]\nassertions: [{type: alert}]\n",
			`unknown action "Explode"`,
		},
		{
			"missing argument",
			"name: x\ndescription: y\nsteps: [{send: OpenURL}]\nassertions: [{type: alert}]\n",
			`argument "url" is required`,
		},
		{
			"bad duration",
			"name: x\ndescription: y\nsteps: [{advance: soon}]\nassertions: [{type: alert}]\n",
			"advance:",
		},
		{
			"unknown failure",
			"name: x\ndescription: y\nsteps: [{fail: {endpoint: get_orders, error: gremlins}}]\nassertions: [{type: alert}]\n",
			`unknown failure "gremlins"`,
		},
		{
			"unknown outage",
			"name: x\ndescription: y\nsteps: [{outage: sunspots}]\nassertions: [{type: alert}]\n",
			"outage:",
		},
		{
			"empty expectation",
			"name: x\ndescription: y\nsteps: [{expect: {}}]\nassertions: [{type: alert}]\n",
			"expect: nothing to check",
		},
		{
			"unknown order status",
			"name: x\ndescription: y\nworld: {orders: [{id: o1, status: lost}]}\nsteps: [{settle: true}]\nassertions: [{type: alert}]\n",
			`unknown order status "lost"`,
		},
		{
			"unknown assertion",
			"name: x\ndescription: y\nsteps: [{settle: true}]\nassertions: [{type: vibes}]\n",
			`unknown assertion type "vibes"`,
		},
		{
			"unknown calls target",
			"name: x\ndescription: y\nsteps: [{settle: true}]\nassertions: [{type: calls, target: fax, call: send}]\n",
			`unknown calls target "fax"`,
		},
		{
			"stored without key",
			"name: x\ndescription: y\nsteps: [{settle: true}]\nassertions: [{type: stored}]\n",
			"key is required for stored",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseOrderStatus(t *testing.T) {
	s, err := parseOrderStatus("")
	require.NoError(t, err)
	assert.Equal(t, model.OrderOngoing, s)

	s, err = parseOrderStatus("cancelled")
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, s)
}
