package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardnight/server/models"
)

func TestBuildNightRecapFourPlayers(t *testing.T) {
	// Scores A=10, B=30, C=30, D=5, host designates A as winner:
	// placements follow descending score with the B/C tie kept in input
	// order, and the top scorer (B) is reported separately from the winner.
	participants := []string{"A", "B", "C", "D"}
	scores := []ScoreRow{
		{UserID: "A", Score: 10},
		{UserID: "B", Score: 30},
		{UserID: "C", Score: 30},
		{UserID: "D", Score: 5},
	}
	ratings := map[string]int{"A": 1000, "B": 1000, "C": 1000, "D": 1000}

	recap, err := BuildNightRecap(participants, scores, ratings, "A")
	require.NoError(t, err)

	assert.Equal(t, "B", recap.TopScorer.UserID)
	assert.Equal(t, 30, recap.TopScorer.Score)
	assert.Equal(t, "A", recap.Winner.UserID)

	require.Len(t, recap.Participants, 4)
	order := []string{"B", "C", "A", "D"}
	for i, entry := range recap.Participants {
		assert.Equal(t, order[i], entry.UserID)
		assert.Equal(t, i+1, entry.Placement)
	}

	// Everyone sits at the mean, so the designated winner gains K/2 and
	// everyone else loses K/2.
	for _, entry := range recap.Participants {
		if entry.UserID == "A" {
			assert.Equal(t, 12, entry.RatingChange)
		} else {
			assert.Equal(t, -12, entry.RatingChange)
		}
	}
	assert.Equal(t, 12, recap.Winner.RatingChange)
}

func TestBuildNightRecapTieBreakFollowsInputOrder(t *testing.T) {
	scores := []ScoreRow{{UserID: "B", Score: 30}, {UserID: "C", Score: 30}}

	recap, err := BuildNightRecap([]string{"B", "C"}, scores, nil, "B")
	require.NoError(t, err)
	assert.Equal(t, "B", recap.Participants[0].UserID)

	// Reordering equal-score participants must reorder placements: the
	// tie-break is the stable input order, not anything intrinsic.
	recap, err = BuildNightRecap([]string{"C", "B"}, scores, nil, "B")
	require.NoError(t, err)
	assert.Equal(t, "C", recap.Participants[0].UserID)
	assert.Equal(t, "C", recap.TopScorer.UserID)
}

func TestBuildNightRecapSumsRounds(t *testing.T) {
	scores := []ScoreRow{
		{UserID: "A", Score: 5},
		{UserID: "A", Score: 7},
		{UserID: "B", Score: 11},
	}
	recap, err := BuildNightRecap([]string{"A", "B"}, scores, nil, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", recap.TopScorer.UserID)
	assert.Equal(t, 12, recap.TopScorer.Score)
}

func TestBuildNightRecapMissingRatingsDefault(t *testing.T) {
	// B has no rating row: both the mean and B's own rating fall back to
	// the documented default instead of failing.
	ratings := map[string]int{"A": 1200}
	recap, err := BuildNightRecap([]string{"A", "B"}, []ScoreRow{{UserID: "A", Score: 1}}, ratings, "A")
	require.NoError(t, err)

	mean := float64(1200+DefaultRating) / 2
	assert.Equal(t, RatingDelta(1200, mean, true, KFactorNight), recap.Winner.RatingChange)
}

func TestBuildNightRecapRejections(t *testing.T) {
	_, err := BuildNightRecap(nil, nil, nil, "A")
	assert.ErrorIs(t, err, ErrNoParticipants)

	_, err = BuildNightRecap([]string{"A", "B"}, nil, nil, "Z")
	assert.ErrorIs(t, err, ErrWinnerNotParticipant)
}

func TestApplyMatchResult(t *testing.T) {
	a := &models.TournamentParticipant{UserID: "A", Seed: 1}
	b := &models.TournamentParticipant{UserID: "B", Seed: 2}
	participants := []*models.TournamentParticipant{a, b}

	loser := "B"
	err := ApplyMatchResult(participants, "A", &loser, models.FormatSingleElimination)
	require.NoError(t, err)

	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 3, a.Points)
	assert.Equal(t, 1, b.Losses)
	assert.True(t, b.IsEliminated)

	// Round robin never eliminates.
	c := &models.TournamentParticipant{UserID: "C", Seed: 3}
	loserC := "C"
	err = ApplyMatchResult([]*models.TournamentParticipant{a, c}, "A", &loserC, models.FormatRoundRobin)
	require.NoError(t, err)
	assert.False(t, c.IsEliminated)

	// A bye report carries no loser and only credits the winner.
	err = ApplyMatchResult(participants, "A", nil, models.FormatSingleElimination)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Wins)

	err = ApplyMatchResult(participants, "Z", &loser, models.FormatSingleElimination)
	assert.ErrorIs(t, err, ErrUnknownParticipant)
}

func TestComputeStandings(t *testing.T) {
	participants := []*models.TournamentParticipant{
		{UserID: "A", Seed: 1, Wins: 1, Losses: 1, Points: 3},
		{UserID: "B", Seed: 2, Wins: 2, Losses: 0, Points: 6},
		{UserID: "C", Seed: 3, Wins: 1, Losses: 1, Points: 3},
	}

	standings := ComputeStandings(participants)
	require.Len(t, standings, 3)

	assert.Equal(t, "B", standings[0].UserID)
	assert.Equal(t, 1, standings[0].Rank)
	// A and C are tied on wins; insertion order stands.
	assert.Equal(t, "A", standings[1].UserID)
	assert.Equal(t, "C", standings[2].UserID)
	assert.Equal(t, 3, standings[2].Rank)

	// Input slice order is untouched.
	assert.Equal(t, "A", participants[0].UserID)
}
