package engine

// GenerateRoundRobin pairs every participant against every other participant
// exactly once. The whole schedule is modeled as a single round; ordering is
// deterministic (outer index ascending, then inner), so N participants yield
// N*(N-1)/2 matches numbered from 1 in a stable order.
func GenerateRoundRobin(participantIDs []string) (*Bracket, error) {
	n := len(participantIDs)
	if n < 2 {
		return nil, ErrTooFewParticipants
	}

	matches := make([]*BracketMatch, 0, n*(n-1)/2)
	matchNumber := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			matchNumber++
			a := participantIDs[i]
			b := participantIDs[j]
			matches = append(matches, &BracketMatch{
				Round:       1,
				MatchNumber: matchNumber,
				PlayerAID:   &a,
				PlayerBID:   &b,
			})
		}
	}

	return &Bracket{TotalRounds: 1, Matches: matches}, nil
}
