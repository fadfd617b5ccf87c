package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSetAddRemoveExists(t *testing.T) {
	rs := newRandomSet(4, false)
	assert.Empty(t, rs.members())

	rs.add(2)
	assert.True(t, rs.exists(2))
	assert.Equal(t, []int{2}, rs.members())

	rs.remove(2)
	assert.False(t, rs.exists(2))
	assert.Empty(t, rs.members())
}

func TestRandomSetSampleFindsPresentMember(t *testing.T) {
	rs := newRandomSet(8, false)
	rs.add(5)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	i, ok := rs.sample(ctx, func() int { return 5 })
	require.True(t, ok)
	assert.Equal(t, 5, i)
}

func TestRandomSetSampleCancelsWhenEmpty(t *testing.T) {
	rs := newRandomSet(8, false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := rs.sample(ctx, func() int { return 0 })
	assert.False(t, ok)
}
