package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLruReplacerShouldReturnError_When_No_Possible_Victim_Is_Found(t *testing.T) {
	PoolSize := 32
	r := NewLruReplacer(PoolSize)
	for i := 0; i < PoolSize; i++ {
		r.Pin(i)
	}
	v, err := r.ChooseVictim()
	assert.Zero(t, v)
	assert.Error(t, err)
}

func TestLruReplacer_Should_Not_Choose_Pinned(t *testing.T) {
	PoolSize := 32
	r := NewLruReplacer(PoolSize)
	for i := 0; i < PoolSize; i++ {
		r.Pin(i)
	}
	r.Unpin(PoolSize - 1)
	v, err := r.ChooseVictim()
	assert.NoError(t, err)
	assert.Equal(t, PoolSize-1, v)
}

func TestClockReplacer_Should_Not_Choose_Pinned(t *testing.T) {
	PoolSize := 8
	r := NewClockReplacer(PoolSize)
	for i := 0; i < PoolSize; i++ {
		r.Pin(i)
	}
	r.Unpin(3)

	v, err := r.ChooseVictim()
	assert.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestClockReplacer_Should_Return_Error_When_Everything_Is_Pinned(t *testing.T) {
	PoolSize := 8
	r := NewClockReplacer(PoolSize)
	for i := 0; i < PoolSize; i++ {
		r.Pin(i)
	}

	_, err := r.ChooseVictim()
	assert.Error(t, err)
}
