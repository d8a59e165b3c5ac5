package buffer

import (
	"errors"

	"heron/common"
)

var ErrNoVictim = errors.New("no evictable frame")

// IReplacer decides which frame the pool reuses when it is full. Frames are
// reported through RecordAccess and only frames marked evictable may be
// returned by Evict.
type IReplacer interface {
	// RecordAccess notes that the frame was touched at the current timestamp.
	RecordAccess(frameID common.FrameID)

	// SetEvictable marks whether the frame may be chosen as a victim. The
	// pool pins frames by setting this to false.
	SetEvictable(frameID common.FrameID, evictable bool)

	// Remove drops the frame's access history. It is a no-op if the frame
	// has no history or is not evictable.
	Remove(frameID common.FrameID)

	// Evict chooses a victim among evictable frames, clears its history and
	// returns it. Returns ErrNoVictim when nothing is evictable.
	Evict() (common.FrameID, error)

	// Size returns the number of evictable frames.
	Size() int
}
