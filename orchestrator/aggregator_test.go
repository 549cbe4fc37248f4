package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorAggregator_Empty(t *testing.T) {
	a := NewErrorAggregator()
	assert.NoError(t, a.Close())
}

func TestErrorAggregator_AllEqual(t *testing.T) {
	a := NewErrorAggregator()
	same := errors.New("connection refused")
	a.Add(same, "/api/a")
	a.Add(same, "/api/b")
	a.Add(same, "/api/c")

	err := a.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 target(s)")
	assert.Contains(t, err.Error(), "/api/a")
	assert.Contains(t, err.Error(), "/api/c")
}

func TestErrorAggregator_Distinct(t *testing.T) {
	a := NewErrorAggregator()
	a.Add(errors.New("timeout"), "/api/a")
	a.Add(errors.New("not found"), "/api/b")

	err := a.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Contains(t, err.Error(), "not found")
	assert.Len(t, a.Errors(), 2)
}
