package buffer

import (
	"testing"

	"heron/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvict_Should_Return_Error_When_Nothing_Is_Evictable(t *testing.T) {
	r := NewLruKReplacer(8, 2)

	for i := 0; i < 8; i++ {
		r.RecordAccess(common.FrameID(i))
	}

	_, err := r.Evict()
	assert.ErrorIs(t, err, ErrNoVictim)
}

func TestSize_Should_Count_Only_Evictable_Frames(t *testing.T) {
	r := NewLruKReplacer(8, 2)

	r.RecordAccess(0)
	r.RecordAccess(1)
	r.RecordAccess(2)
	assert.Equal(t, 0, r.Size())

	r.SetEvictable(0, true)
	r.SetEvictable(1, true)
	assert.Equal(t, 2, r.Size())

	r.SetEvictable(1, false)
	assert.Equal(t, 1, r.Size())
}

func TestEvict_Should_Prefer_Frames_With_Fewer_Than_K_Accesses(t *testing.T) {
	r := NewLruKReplacer(4, 2)

	// frame 0 has two accesses, frame 1 only one. frame 1 has infinite
	// k-distance and must go first even though it was touched later.
	r.RecordAccess(0)
	r.RecordAccess(0)
	r.RecordAccess(1)
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	v, err := r.Evict()
	require.NoError(t, err)
	assert.Equal(t, common.FrameID(1), v)

	v, err = r.Evict()
	require.NoError(t, err)
	assert.Equal(t, common.FrameID(0), v)
}

func TestEvict_Should_Pick_Largest_Backward_K_Distance(t *testing.T) {
	r := NewLruKReplacer(5, 2)

	// access pattern 1,2,3,4,1,2,3,4,1,2 over frames 1..4. frames 3 and 4
	// were not touched by the last two accesses, and 3 holds the older second
	// most recent access (timestamp 3 against 4), so 3 has the largest
	// k-distance and is the victim.
	pattern := []common.FrameID{1, 2, 3, 4, 1, 2, 3, 4, 1, 2}
	for _, f := range pattern {
		r.RecordAccess(f)
	}
	for i := 1; i <= 4; i++ {
		r.SetEvictable(common.FrameID(i), true)
	}

	v, err := r.Evict()
	require.NoError(t, err)
	assert.Equal(t, common.FrameID(3), v)
}

func TestEvict_Should_Clear_History_Of_The_Victim(t *testing.T) {
	r := NewLruKReplacer(4, 2)

	r.RecordAccess(0)
	r.SetEvictable(0, true)

	v, err := r.Evict()
	require.NoError(t, err)
	require.Equal(t, common.FrameID(0), v)
	assert.Equal(t, 0, r.Size())

	_, err = r.Evict()
	assert.ErrorIs(t, err, ErrNoVictim)
}

func TestRemove_Should_Be_A_NoOp_On_Pinned_Or_Unknown_Frames(t *testing.T) {
	r := NewLruKReplacer(4, 2)

	// no history at all
	r.Remove(0)
	assert.Equal(t, 0, r.Size())

	// pinned (non evictable)
	r.RecordAccess(1)
	r.Remove(1)
	r.SetEvictable(1, true)
	assert.Equal(t, 1, r.Size())

	// evictable, removed for real
	r.Remove(1)
	assert.Equal(t, 0, r.Size())
	_, err := r.Evict()
	assert.ErrorIs(t, err, ErrNoVictim)
}

func TestRecordAccess_Should_Keep_At_Most_K_Timestamps(t *testing.T) {
	r := NewLruKReplacer(2, 2)

	// frame 0 is hammered; only its last two accesses may count. frame 1 is
	// accessed twice early, so its k-th most recent access is older and it
	// must be evicted first.
	r.RecordAccess(1)
	r.RecordAccess(1)
	for i := 0; i < 10; i++ {
		r.RecordAccess(0)
	}
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	v, err := r.Evict()
	require.NoError(t, err)
	assert.Equal(t, common.FrameID(1), v)
}

func TestRecordAccess_Should_Panic_On_Out_Of_Range_Frame(t *testing.T) {
	r := NewLruKReplacer(4, 2)

	assert.Panics(t, func() {
		r.RecordAccess(4)
	})
}
