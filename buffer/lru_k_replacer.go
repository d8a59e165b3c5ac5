package buffer

import (
	"fmt"
	"sync"

	"heron/common"
)

var _ IReplacer = &LruKReplacer{}

// LruKReplacer evicts the frame with the largest backward k-distance, the gap
// between the current timestamp and the frame's k-th most recent access. A
// frame with fewer than k recorded accesses has infinite k-distance; ties are
// broken by the oldest timestamp in the frame's history.
type LruKReplacer struct {
	k         int
	numFrames int
	currTS    uint64
	currSize  int
	frames    map[common.FrameID]*frameRecord
	lock      sync.Mutex
}

// frameRecord keeps the last k access timestamps of one frame, oldest first.
type frameRecord struct {
	history   []uint64
	evictable bool
}

func NewLruKReplacer(numFrames, k int) *LruKReplacer {
	return &LruKReplacer{
		k:         k,
		numFrames: numFrames,
		frames:    map[common.FrameID]*frameRecord{},
	}
}

func (l *LruKReplacer) RecordAccess(frameID common.FrameID) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.checkFrame(frameID)

	rec, ok := l.frames[frameID]
	if !ok {
		rec = &frameRecord{history: make([]uint64, 0, l.k)}
		l.frames[frameID] = rec
	}

	l.currTS++
	rec.history = append(rec.history, l.currTS)
	if len(rec.history) > l.k {
		rec.history = rec.history[1:]
	}
}

func (l *LruKReplacer) SetEvictable(frameID common.FrameID, evictable bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.checkFrame(frameID)

	rec, ok := l.frames[frameID]
	if !ok {
		return
	}

	if evictable && !rec.evictable {
		l.currSize++
	} else if !evictable && rec.evictable {
		l.currSize--
	}
	rec.evictable = evictable
}

func (l *LruKReplacer) Remove(frameID common.FrameID) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.checkFrame(frameID)

	rec, ok := l.frames[frameID]
	if !ok || !rec.evictable {
		return
	}

	delete(l.frames, frameID)
	l.currSize--
}

func (l *LruKReplacer) Evict() (common.FrameID, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.currSize == 0 {
		return common.InvalidFrameID, ErrNoVictim
	}

	victim := common.InvalidFrameID
	victimInf := false
	var victimOldest uint64
	for frameID, rec := range l.frames {
		if !rec.evictable || len(rec.history) == 0 {
			continue
		}

		inf := len(rec.history) < l.k
		oldest := rec.history[0]

		// an infinite k-distance beats any finite one. among frames with
		// equal distance class the oldest recorded timestamp wins, which for
		// finite distances is also the frame with the largest k-distance.
		better := false
		if victim == common.InvalidFrameID {
			better = true
		} else if inf != victimInf {
			better = inf
		} else {
			better = oldest < victimOldest
		}

		if better {
			victim = frameID
			victimInf = inf
			victimOldest = oldest
		}
	}

	if victim == common.InvalidFrameID {
		return common.InvalidFrameID, ErrNoVictim
	}

	delete(l.frames, victim)
	l.currSize--
	return victim, nil
}

func (l *LruKReplacer) Size() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.currSize
}

func (l *LruKReplacer) checkFrame(frameID common.FrameID) {
	if int(frameID) < 0 || int(frameID) >= l.numFrames {
		panic(fmt.Sprintf("frame id out of range: %v", frameID))
	}
}
