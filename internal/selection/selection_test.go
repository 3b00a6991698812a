package selection

import "testing"

func TestNextSequential(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		current int
		repeat  bool
		want    int
	}{
		{"advance", 5, 1, false, 2},
		{"from first", 5, 0, false, 1},
		{"end without repeat", 5, 4, false, None},
		{"end with repeat wraps", 5, 4, true, 0},
		{"empty playlist", 0, 0, true, None},
		{"single track without repeat", 1, 0, false, None},
		{"single track with repeat", 1, 0, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(tt.count, tt.current, false, tt.repeat, NewSession())
			if got != tt.want {
				t.Errorf("Next() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPreviousSequential(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		current int
		repeat  bool
		want    int
	}{
		{"step back", 5, 3, false, 2},
		{"wrap without repeat", 5, 0, false, 4},
		{"wrap with repeat", 5, 0, true, 4},
		{"empty playlist", 0, 0, false, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Previous(tt.count, tt.current, false, tt.repeat, NewSession())
			if got != tt.want {
				t.Errorf("Previous() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRandomNeverRepeatsWithinEpoch(t *testing.T) {
	const count = 10
	sess := NewSession()
	current := 0
	sess.MarkPlayed(current)

	seen := map[int]bool{current: true}
	for i := 0; i < count-1; i++ {
		next := Random(count, current, true, false, sess)
		if next == None {
			t.Fatalf("draw %d returned None with %d indices unplayed", i, count-1-i)
		}
		if seen[next] {
			t.Fatalf("index %d drawn twice in one epoch", next)
		}
		seen[next] = true
		sess.MarkPlayed(next)
		current = next
	}

	// Epoch exhausted: without repeat the draw must stop
	if got := Random(count, current, true, false, sess); got != None {
		t.Errorf("exhausted epoch without repeat = %d, want None", got)
	}
}

func TestRandomRepeatResetsEpoch(t *testing.T) {
	const count = 4
	sess := NewSession()
	for i := 0; i < count; i++ {
		sess.MarkPlayed(i)
	}

	got := Random(count, 2, true, true, sess)
	if got == None {
		t.Fatal("repeat should reset the epoch instead of stopping")
	}
	if got == 2 {
		t.Error("current index should stay excluded after the reset")
	}
}

func TestRandomSingleTrack(t *testing.T) {
	sess := NewSession()
	if got := Random(1, 0, true, true, sess); got != None {
		t.Errorf("single track with current excluded = %d, want None", got)
	}
	if got := Random(1, 0, false, false, sess); got != 0 {
		t.Errorf("single track without exclusion = %d, want 0", got)
	}
}

func TestRandomExcludesCurrent(t *testing.T) {
	sess := NewSession()
	for i := 0; i < 50; i++ {
		if got := Random(3, 1, true, true, sess); got == 1 {
			t.Fatal("excluded current index was drawn")
		}
		sess.Reset()
	}
}

func TestNextShuffleDelegates(t *testing.T) {
	sess := NewSession()
	sess.MarkPlayed(0)
	sess.MarkPlayed(1)

	got := Next(3, 0, true, false, sess)
	if got != 2 {
		t.Errorf("shuffle with one unplayed index = %d, want 2", got)
	}
}

func TestSessionReset(t *testing.T) {
	sess := NewSession()
	sess.MarkPlayed(3)
	if !sess.Played(3) {
		t.Error("MarkPlayed(3) not recorded")
	}
	sess.Reset()
	if sess.Played(3) {
		t.Error("Reset did not clear the session")
	}
}
