// Package selection computes which track plays next. It is a pure function of
// the playlist length, the current index, the shuffle and repeat toggles, and
// the set of indices already played this shuffle epoch; it never touches the
// player or the store.
package selection

import "math/rand"

// None is returned when no further track should play.
const None = -1

// Session tracks the indices already selected since the last shuffle-epoch
// reset. The caller owns insertion: every index returned by a shuffle draw
// must be recorded with MarkPlayed before the next draw.
type Session struct {
	played map[int]bool
}

// NewSession returns an empty shuffle session.
func NewSession() *Session {
	return &Session{played: make(map[int]bool)}
}

// MarkPlayed records an index as played in the current epoch.
func (s *Session) MarkPlayed(index int) {
	s.played[index] = true
}

// Reset begins a fresh shuffle epoch. Called when shuffle is toggled on and
// when the active playlist changes.
func (s *Session) Reset() {
	s.played = make(map[int]bool)
}

// Played reports whether an index was already selected this epoch.
func (s *Session) Played(index int) bool {
	return s.played[index]
}

// Next returns the index to play after current, or None when playback should
// stop. Forward wrap is gated on repeat; shuffle draws from the unplayed set.
func Next(count, current int, shuffle, repeat bool, sess *Session) int {
	if count <= 0 {
		return None
	}
	if shuffle {
		return Random(count, current, true, repeat, sess)
	}
	next := current + 1
	if next >= count {
		if repeat {
			return 0
		}
		return None
	}
	return next
}

// Previous returns the index for an explicit "previous" request. Backward
// wrap is unconditional: repeat mode does not gate it.
func Previous(count, current int, shuffle, repeat bool, sess *Session) int {
	if count <= 0 {
		return None
	}
	if shuffle {
		return Random(count, current, true, repeat, sess)
	}
	prev := current - 1
	if prev < 0 {
		prev = count - 1
	}
	return prev
}

// Random draws uniformly from the indices not yet played this epoch,
// optionally excluding the current index. When the candidate set is empty and
// repeat is on, the epoch resets and the draw is recomputed. A single-track
// playlist with the current track excluded yields None.
func Random(count, current int, excludeCurrent, repeat bool, sess *Session) int {
	if count <= 0 {
		return None
	}
	if count == 1 {
		if excludeCurrent && current == 0 {
			return None
		}
		return 0
	}

	candidates := unplayed(count, current, excludeCurrent, sess)
	if len(candidates) == 0 && repeat {
		sess.Reset()
		candidates = unplayed(count, current, excludeCurrent, sess)
	}
	if len(candidates) == 0 {
		return None
	}
	return candidates[rand.Intn(len(candidates))]
}

func unplayed(count, current int, excludeCurrent bool, sess *Session) []int {
	var indices []int
	for i := 0; i < count; i++ {
		if sess.Played(i) {
			continue
		}
		if excludeCurrent && i == current {
			continue
		}
		indices = append(indices, i)
	}
	return indices
}
