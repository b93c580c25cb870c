package transport

import (
	"math/rand"

	"sonata/pkg/models"
)

// ScrubBackThreshold is how far into a track "previous" restarts it
// instead of moving to the prior queue entry.
const ScrubBackThreshold = 3000 // milliseconds

// AdvanceIndex computes the queue index to play after the entry at
// current, for an explicit skip or a natural track end (repeat-one
// replay is the caller's concern and is not applied here). Returns -1
// when playback should stop.
//
// Shuffle is a weak shuffle: every advance re-rolls a random index
// different from the current one, so a track may repeat before all
// others are heard. That is the accepted policy, not a pre-shuffled
// traversal.
func AdvanceIndex(queueLen, current int, repeat models.RepeatMode, shuffleOn bool, rng *rand.Rand) int {
	if queueLen == 0 {
		return -1
	}

	if shuffleOn {
		if queueLen == 1 {
			return 0
		}
		next := rng.Intn(queueLen)
		for next == current {
			next = rng.Intn(queueLen)
		}
		return next
	}

	next := current + 1
	if next >= queueLen {
		if repeat == models.RepeatAll {
			return 0
		}
		return -1
	}
	return next
}

// PrevIndex computes the queue index for an explicit "previous" once
// the scrub-back rule has not applied. At the head of the queue it
// wraps to the last entry only under repeat-all; otherwise it restarts
// the first track (returns current).
func PrevIndex(queueLen, current int, repeat models.RepeatMode) int {
	if queueLen == 0 {
		return -1
	}

	prev := current - 1
	if prev < 0 {
		if repeat == models.RepeatAll {
			return queueLen - 1
		}
		return current
	}
	return prev
}
