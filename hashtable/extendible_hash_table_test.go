package hashtable

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind_Should_Return_False_When_Key_Is_Absent(t *testing.T) {
	ht := NewExtendibleHashTable[int, string](4)

	_, ok := ht.Find(1)

	assert.False(t, ok)
}

func TestInsert_Then_Find_Should_Return_Inserted_Value(t *testing.T) {
	ht := NewExtendibleHashTable[int, string](4)

	ht.Insert(1, "a")
	ht.Insert(2, "b")

	v, ok := ht.Find(1)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = ht.Find(2)
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestInsert_Should_Update_Existing_Key_In_Place(t *testing.T) {
	ht := NewExtendibleHashTable[int, string](2)

	ht.Insert(1, "a")
	ht.Insert(1, "b")

	v, ok := ht.Find(1)
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, 0, ht.GetGlobalDepth())
}

func TestRemove_Should_Return_False_When_Key_Is_Absent(t *testing.T) {
	ht := NewExtendibleHashTable[int, int](4)

	ht.Insert(1, 1)

	assert.False(t, ht.Remove(2))
	assert.True(t, ht.Remove(1))
	assert.False(t, ht.Remove(1))
}

func TestInsert_Into_Full_Bucket_Should_Double_Directory(t *testing.T) {
	ht := NewExtendibleHashTable[int, int](2)

	// keys 0 and 2 share the low bit, so with bucket size 2 inserting 4
	// overflows the bucket and the directory must grow.
	ht.Insert(0, 0)
	ht.Insert(2, 2)
	require.Equal(t, 0, ht.GetGlobalDepth())

	ht.Insert(4, 4)

	assert.Greater(t, ht.GetGlobalDepth(), 0)
	for _, k := range []int{0, 2, 4} {
		v, ok := ht.Find(k)
		require.True(t, ok)
		assert.Equal(t, k, v)
	}
}

func TestSplit_Should_Redistribute_Entries_By_Discriminator_Bit(t *testing.T) {
	ht := NewExtendibleHashTable[int, int](2)

	// 0b00, 0b10 and 0b01 force a split on the even bucket once 4 arrives.
	ht.Insert(0, 0)
	ht.Insert(1, 1)
	ht.Insert(2, 2)
	ht.Insert(4, 4)
	ht.Insert(6, 6)

	for _, k := range []int{0, 1, 2, 4, 6} {
		v, ok := ht.Find(k)
		require.True(t, ok, "key %v lost after split", k)
		assert.Equal(t, k, v)
	}
	assert.GreaterOrEqual(t, ht.GetNumBuckets(), 2)
}

func TestConcurrent_Inserts_Should_All_Be_Found(t *testing.T) {
	ht := NewExtendibleHashTable[int, int](4)

	n, routines := 1000, 8
	wg := sync.WaitGroup{}
	for r := 0; r < routines; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := r; i < n; i += routines {
				ht.Insert(i, i*10)
			}
		}(r)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		v, ok := ht.Find(i)
		require.True(t, ok, "key %v missing", i)
		require.Equal(t, i*10, v)
	}
}

func TestConcurrent_Mixed_Operations_Should_Not_Lose_Keys(t *testing.T) {
	ht := NewExtendibleHashTable[int, int](4)

	n := 512
	wg := sync.WaitGroup{}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := r; i < n; i += 4 {
				ht.Insert(i, i)
				if i%3 == 0 {
					ht.Remove(i)
				}
			}
		}(r)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		_, ok := ht.Find(i)
		require.Equal(t, i%3 != 0, ok, "key %v", i)
	}
}
