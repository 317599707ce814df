package engine

import (
	"errors"
	"math/rand"
)

var (
	ErrTooFewParticipants = errors.New("at least 2 participants are required")
	ErrNilRandSource      = errors.New("a random source is required for bracket seeding")
)

// BracketMatch is one generated pairing. Player slots are nil for byes and
// for later-round slots that wait on a feeder match. A bye match is created
// already completed with its sole participant as winner.
type BracketMatch struct {
	Round       int
	MatchNumber int
	PlayerAID   *string
	PlayerBID   *string
	WinnerID    *string
	IsBye       bool
}

// Bracket is a complete generated schedule, sorted by round then match number.
type Bracket struct {
	TotalRounds int
	Matches     []*BracketMatch
}

// MatchAt returns the match at (round, matchNumber), or nil.
func (b *Bracket) MatchAt(round, matchNumber int) *BracketMatch {
	for _, m := range b.Matches {
		if m.Round == round && m.MatchNumber == matchNumber {
			return m
		}
	}
	return nil
}

// NextMatchPosition returns the round, match number and slot (1 = player A,
// 2 = player B) that the winner of (round, matchNumber) advances to.
// ok is false for the final round.
func NextMatchPosition(round, matchNumber, totalRounds int) (nextRound, nextNumber, slot int, ok bool) {
	if round >= totalRounds {
		return 0, 0, 0, false
	}
	slot = 2
	if matchNumber%2 == 1 {
		slot = 1
	}
	return round + 1, (matchNumber + 1) / 2, slot, true
}

// GenerateSingleElimination builds a full single-elimination bracket for the
// given participants. Seeding is randomized via the supplied source: the
// participant order is shuffled before pairing, so bracket position carries no
// top-seed bias. The bracket is padded to the next power of two; each padding
// slot gets its own round-1 match, which guarantees two byes never meet.
// Bye participants are advanced into their round-2 slot at generation time.
func GenerateSingleElimination(participantIDs []string, rng *rand.Rand) (*Bracket, error) {
	n := len(participantIDs)
	if n < 2 {
		return nil, ErrTooFewParticipants
	}
	if rng == nil {
		return nil, ErrNilRandSource
	}

	totalRounds := 0
	for 1<<totalRounds < n {
		totalRounds++
	}
	bracketSize := 1 << totalRounds
	byes := bracketSize - n

	shuffled := make([]string, n)
	copy(shuffled, participantIDs)
	rng.Shuffle(n, func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	matches := make([]*BracketMatch, 0, bracketSize-1)

	idx := 0
	for m := 1; m <= bracketSize/2; m++ {
		a := shuffled[idx]
		idx++
		bm := &BracketMatch{Round: 1, MatchNumber: m, PlayerAID: &a}
		if m <= byes {
			bm.IsBye = true
			bm.WinnerID = &a
		} else {
			b := shuffled[idx]
			idx++
			bm.PlayerBID = &b
		}
		matches = append(matches, bm)
	}

	for r := 2; r <= totalRounds; r++ {
		count := bracketSize >> uint(r)
		for m := 1; m <= count; m++ {
			matches = append(matches, &BracketMatch{Round: r, MatchNumber: m})
		}
	}

	bracket := &Bracket{TotalRounds: totalRounds, Matches: matches}

	for m := 1; m <= byes; m++ {
		nr, nm, slot, ok := NextMatchPosition(1, m, totalRounds)
		if !ok {
			break
		}
		next := bracket.MatchAt(nr, nm)
		winner := bracket.MatchAt(1, m).WinnerID
		if slot == 1 {
			next.PlayerAID = winner
		} else {
			next.PlayerBID = winner
		}
	}

	return bracket, nil
}
