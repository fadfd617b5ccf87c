package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitmix64Deterministic(t *testing.T) {
	assert.Equal(t, splitmix64(0), splitmix64(0))
	assert.NotEqual(t, splitmix64(0), splitmix64(1))
}

func TestNextSeedAdvances(t *testing.T) {
	seed := uint64(42)
	a := nextSeed(&seed)
	b := nextSeed(&seed)
	assert.NotEqual(t, a, b)
	assert.Equal(t, splitmix64(splitmix64(42)), b)
}

func TestPriorityOfMasksTo56Bits(t *testing.T) {
	p := priorityOf(^uint64(0))
	assert.Equal(t, priorityMask, p)
	assert.Zero(t, p>>56)
}
