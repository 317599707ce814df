package engine

import (
	"errors"
	"sort"

	"github.com/boardnight/server/models"
)

var (
	ErrNoParticipants       = errors.New("participant list is empty")
	ErrWinnerNotParticipant = errors.New("winner is not among the participants")
	ErrUnknownParticipant   = errors.New("participant not found")
)

// ScoreRow is one raw (participant, score) observation. A participant may
// appear in multiple rows (one per round); totals are summed.
type ScoreRow struct {
	UserID string
	Score  int
}

// BuildNightRecap folds raw round scores into the end-of-night summary:
// per-participant totals, 1-based placement by descending total (ties keep
// the participant list order), the computed top scorer and the host-designated
// winner, plus Elo deltas for every participant against the table's mean
// rating (K = KFactorNight). Missing ratings default to DefaultRating.
func BuildNightRecap(participantIDs []string, scores []ScoreRow, ratings map[string]int, winnerID string) (*models.NightSummary, error) {
	if len(participantIDs) == 0 {
		return nil, ErrNoParticipants
	}

	isParticipant := false
	for _, id := range participantIDs {
		if id == winnerID {
			isParticipant = true
			break
		}
	}
	if !isParticipant {
		return nil, ErrWinnerNotParticipant
	}

	totals := make(map[string]int, len(participantIDs))
	for _, row := range scores {
		totals[row.UserID] += row.Score
	}

	entries := make([]models.NightSummaryEntry, len(participantIDs))
	for i, id := range participantIDs {
		entries[i] = models.NightSummaryEntry{UserID: id, TotalScore: totals[id]}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})

	ratingSum := 0
	for _, id := range participantIDs {
		r, ok := ratings[id]
		if !ok {
			r = DefaultRating
		}
		ratingSum += r
	}
	meanRating := float64(ratingSum) / float64(len(participantIDs))

	summary := &models.NightSummary{}
	for i := range entries {
		rating, ok := ratings[entries[i].UserID]
		if !ok {
			rating = DefaultRating
		}
		won := entries[i].UserID == winnerID
		entries[i].Placement = i + 1
		entries[i].RatingChange = RatingDelta(float64(rating), meanRating, won, KFactorNight)
		if won {
			summary.Winner = models.NightSummaryWinner{
				UserID:       entries[i].UserID,
				RatingChange: entries[i].RatingChange,
			}
		}
	}

	summary.TopScorer = models.NightSummaryScorer{
		UserID: entries[0].UserID,
		Score:  entries[0].TotalScore,
	}
	summary.Participants = entries

	return summary, nil
}

// ApplyMatchResult updates win/loss/point counters in place for one reported
// match: the winner gains a win and 3 points, the loser a loss, and in single
// elimination the loser is flagged eliminated. A nil loser means the match
// had an empty opposing slot.
func ApplyMatchResult(participants []*models.TournamentParticipant, winnerID string, loserID *string, format models.TournamentFormat) error {
	var winner, loser *models.TournamentParticipant
	for _, p := range participants {
		if p.UserID == winnerID {
			winner = p
		}
		if loserID != nil && p.UserID == *loserID {
			loser = p
		}
	}
	if winner == nil {
		return ErrUnknownParticipant
	}
	if loserID != nil && loser == nil {
		return ErrUnknownParticipant
	}

	winner.Wins++
	winner.Points += 3
	if loser != nil {
		loser.Losses++
		if format == models.FormatSingleElimination {
			loser.IsEliminated = true
		}
	}
	return nil
}

// ComputeStandings produces the final table: participants sorted by wins
// descending with a stable tie-break on the incoming (insertion) order,
// ranked from 1. The champion is the first entry.
func ComputeStandings(participants []*models.TournamentParticipant) []models.Standing {
	ordered := make([]*models.TournamentParticipant, len(participants))
	copy(ordered, participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Wins > ordered[j].Wins
	})

	standings := make([]models.Standing, len(ordered))
	for i, p := range ordered {
		standings[i] = models.Standing{
			UserID: p.UserID,
			Seed:   p.Seed,
			Wins:   p.Wins,
			Losses: p.Losses,
			Points: p.Points,
			Rank:   i + 1,
		}
	}
	return standings
}
