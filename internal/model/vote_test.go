package model

import "testing"

// The vote state machine has three logical states per (voter, target) pair:
// no vote, upvoted, downvoted. These tests pin the full transition table.

func TestVoteDelta_TransitionTable(t *testing.T) {
	tests := []struct {
		name      string
		current   VoteValue // "" = no prior vote
		requested VoteValue
		want      int
	}{
		{"first upvote", "", VoteUp, 1},
		{"first downvote", "", VoteDown, -1},
		{"repeat upvote is a no-op", VoteUp, VoteUp, 0},
		{"flip up to down", VoteUp, VoteDown, -2},
		{"repeat downvote is a no-op", VoteDown, VoteDown, 0},
		{"flip down to up", VoteDown, VoteUp, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VoteDelta(tt.current, tt.requested); got != tt.want {
				t.Errorf("VoteDelta(%q, %q) = %d, want %d",
					tt.current, tt.requested, got, tt.want)
			}
		})
	}
}

func TestVoteDelta_FlipRoundTrip(t *testing.T) {
	// Switching up→down then down→up must return the total to where it started.
	total := 5
	total += VoteDelta(VoteUp, VoteDown)
	total += VoteDelta(VoteDown, VoteUp)
	if total != 5 {
		t.Errorf("total after two flips = %d, want 5", total)
	}
}

func TestReputationDelta(t *testing.T) {
	w := DefaultVoteWeights() // +10 up, −2 down

	tests := []struct {
		name      string
		current   VoteValue
		requested VoteValue
		want      int
	}{
		{"first upvote", "", VoteUp, 10},
		{"first downvote", "", VoteDown, -2},
		{"repeat upvote", VoteUp, VoteUp, 0},
		{"repeat downvote", VoteDown, VoteDown, 0},
		{"flip up to down", VoteUp, VoteDown, -12}, // take back +10, apply −2
		{"flip down to up", VoteDown, VoteUp, 12},  // take back −2, apply +10
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.ReputationDelta(tt.current, tt.requested); got != tt.want {
				t.Errorf("ReputationDelta(%q, %q) = %d, want %d",
					tt.current, tt.requested, got, tt.want)
			}
		})
	}
}

func TestReputationDelta_FlipRoundTrip(t *testing.T) {
	w := VoteWeights{Up: 10, Down: 2}
	rep := 100
	rep += w.ReputationDelta(VoteUp, VoteDown)
	rep += w.ReputationDelta(VoteDown, VoteUp)
	if rep != 100 {
		t.Errorf("reputation after two flips = %d, want 100", rep)
	}
}

func TestVoteValue_Valid(t *testing.T) {
	if !VoteUp.Valid() || !VoteDown.Valid() {
		t.Error("up/down should be valid")
	}
	if VoteValue("sideways").Valid() || VoteValue("").Valid() {
		t.Error("anything else should be invalid")
	}
}
