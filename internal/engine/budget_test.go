package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBudget_Charge(t *testing.T) {
	b := NewBudget(3)
	assert.NoError(t, b.Charge(1))
	assert.NoError(t, b.Charge(2))
	assert.Equal(t, 3, b.Used())

	err := b.Charge(1)
	assert.True(t, IsCode(err, CodeBudgetExceeded))
	assert.Equal(t, 3, b.Limit())
}

func TestAddSub(t *testing.T) {
	sum, err := Add(1<<63, 1<<62, "total")
	assert.NoError(t, err)
	assert.Equal(t, uint64(3<<62), sum)

	_, err = Add(^uint64(0), 1, "total")
	assert.True(t, IsCode(err, CodeInvalidState))

	diff, err := Sub(10, 10, "remaining")
	assert.NoError(t, err)
	assert.Zero(t, diff)

	_, err = Sub(1, 2, "remaining")
	assert.True(t, IsCode(err, CodeInvalidState))
}
