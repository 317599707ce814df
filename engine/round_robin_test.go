package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRoundRobinRejectsTooFew(t *testing.T) {
	_, err := GenerateRoundRobin([]string{"solo"})
	assert.ErrorIs(t, err, ErrTooFewParticipants)
}

func TestGenerateRoundRobinExactOrder(t *testing.T) {
	bracket, err := GenerateRoundRobin([]string{"A", "B", "C", "D"})
	require.NoError(t, err)
	require.Len(t, bracket.Matches, 6)
	assert.Equal(t, 1, bracket.TotalRounds)

	want := [][2]string{{"A", "B"}, {"A", "C"}, {"A", "D"}, {"B", "C"}, {"B", "D"}, {"C", "D"}}
	for i, m := range bracket.Matches {
		assert.Equal(t, 1, m.Round)
		assert.Equal(t, i+1, m.MatchNumber)
		assert.Equal(t, want[i][0], *m.PlayerAID)
		assert.Equal(t, want[i][1], *m.PlayerBID)
	}
}

func TestGenerateRoundRobinCompleteness(t *testing.T) {
	for n := 2; n <= 9; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			ids := participantIDs(n)
			bracket, err := GenerateRoundRobin(ids)
			require.NoError(t, err)
			assert.Len(t, bracket.Matches, n*(n-1)/2)

			pairs := make(map[string]bool)
			for _, m := range bracket.Matches {
				require.NotNil(t, m.PlayerAID)
				require.NotNil(t, m.PlayerBID)
				assert.NotEqual(t, *m.PlayerAID, *m.PlayerBID, "no self-pairing")
				key := *m.PlayerAID + "/" + *m.PlayerBID
				if *m.PlayerBID < *m.PlayerAID {
					key = *m.PlayerBID + "/" + *m.PlayerAID
				}
				assert.False(t, pairs[key], "pair %s generated twice", key)
				pairs[key] = true
			}
			assert.Len(t, pairs, n*(n-1)/2)
		})
	}
}
