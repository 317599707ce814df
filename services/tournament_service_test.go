package services

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardnight/server/models"
)

type tournamentFixture struct {
	svc             TournamentService
	txRunner        *fakeTxRunner
	tournamentRepo  *fakeTournamentRepo
	participantRepo *fakeParticipantRepo
	matchRepo       *fakeMatchRepo
	ratingRepo      *fakeRatingRepo
	auditRepo       *fakeAuditRepo
}

func newTournamentFixture(t *testing.T) *tournamentFixture {
	t.Helper()
	f := &tournamentFixture{
		txRunner:        &fakeTxRunner{},
		tournamentRepo:  newFakeTournamentRepo(),
		participantRepo: &fakeParticipantRepo{},
		matchRepo:       &fakeMatchRepo{},
		ratingRepo:      newFakeRatingRepo(),
		auditRepo:       &fakeAuditRepo{},
	}
	f.svc = NewTournamentService(
		f.txRunner,
		f.tournamentRepo,
		f.participantRepo,
		f.matchRepo,
		f.ratingRepo,
		newFakeGameRepo("chess"),
		newFakeUserRepo("host", "p1", "p2", "p3", "p4"),
		f.auditRepo,
		nil,
		testLogger(),
		rand.New(rand.NewSource(7)),
	)
	return f
}

func (f *tournamentFixture) create(t *testing.T, format models.TournamentFormat, participants ...string) *models.Tournament {
	t.Helper()
	tournament, err := f.svc.Create(context.Background(), "host", CreateTournamentInput{
		GameID:         "chess",
		Title:          "club cup",
		Format:         format,
		ParticipantIDs: participants,
	})
	require.NoError(t, err)
	return tournament
}

func findMatch(t *testing.T, tournament *models.Tournament, round, number int) *models.Match {
	t.Helper()
	for i := range tournament.Matches {
		m := &tournament.Matches[i]
		if m.RoundNumber == round && m.MatchNumber == number {
			return m
		}
	}
	t.Fatalf("match %d.%d not found", round, number)
	return nil
}

func TestTournamentServiceCreateSingleElimination(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t, models.FormatSingleElimination, "p1", "p2", "p3", "p4")

	assert.Equal(t, models.TournamentStatusActive, tournament.Status)
	assert.Equal(t, 2, tournament.TotalRounds)
	assert.Equal(t, 1, tournament.CurrentRound)
	require.Len(t, tournament.Matches, 3)
	require.Len(t, tournament.Participants, 4)
	for i, p := range tournament.Participants {
		assert.Equal(t, i+1, p.Seed)
	}

	final := findMatch(t, tournament, 2, 1)
	assert.Nil(t, final.NextMatchID)
	assert.Nil(t, final.PlayerAID)
	assert.Nil(t, final.PlayerBID)

	for number := 1; number <= 2; number++ {
		m := findMatch(t, tournament, 1, number)
		assert.Equal(t, models.MatchStatusPending, m.Status)
		require.NotNil(t, m.PlayerAID)
		require.NotNil(t, m.PlayerBID)
		require.NotNil(t, m.NextMatchID)
		require.NotNil(t, m.NextMatchSlot)
		assert.Equal(t, final.ID, *m.NextMatchID)
		assert.Equal(t, number, *m.NextMatchSlot)
	}
}

func TestTournamentServiceCreateWithByes(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t, models.FormatSingleElimination, "p1", "p2", "p3")

	assert.Equal(t, 2, tournament.TotalRounds)
	require.Len(t, tournament.Matches, 3)

	bye := findMatch(t, tournament, 1, 1)
	assert.Equal(t, models.MatchStatusCompleted, bye.Status)
	require.NotNil(t, bye.WinnerID)
	assert.Nil(t, bye.PlayerBID)

	// The bye winner is already seated in the final.
	final := findMatch(t, tournament, 2, 1)
	require.NotNil(t, final.PlayerAID)
	assert.Equal(t, *bye.WinnerID, *final.PlayerAID)
	assert.Nil(t, final.PlayerBID)
	assert.Equal(t, models.MatchStatusPending, final.Status)
}

func TestTournamentServiceCreateRoundRobin(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t, models.FormatRoundRobin, "p1", "p2", "p3")

	assert.Equal(t, 1, tournament.TotalRounds)
	require.Len(t, tournament.Matches, 3)
	for _, m := range tournament.Matches {
		assert.Equal(t, models.MatchStatusPending, m.Status)
		assert.Nil(t, m.NextMatchID)
	}
}

func TestTournamentServiceCreateValidation(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "host", CreateTournamentInput{
		GameID: "chess", Title: "cup", Format: "swiss", ParticipantIDs: []string{"p1", "p2"},
	})
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = f.svc.Create(ctx, "host", CreateTournamentInput{
		GameID: "chess", Title: "cup", Format: models.FormatRoundRobin, ParticipantIDs: []string{"p1"},
	})
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)

	_, err = f.svc.Create(ctx, "host", CreateTournamentInput{
		GameID: "chess", Title: "cup", Format: models.FormatRoundRobin, ParticipantIDs: []string{"p1", "p1"},
	})
	assert.ErrorIs(t, err, ErrDuplicateParticipants)

	_, err = f.svc.Create(ctx, "host", CreateTournamentInput{
		GameID: "chess", Title: "cup", Format: models.FormatRoundRobin, ParticipantIDs: []string{"p1", "ghost"},
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTournamentServiceReportAdvancesWinner(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t, models.FormatSingleElimination, "p1", "p2", "p3", "p4")
	ctx := context.Background()

	semifinal := findMatch(t, tournament, 1, 1)
	winnerID := *semifinal.PlayerAID
	loserID := *semifinal.PlayerBID

	updated, err := f.svc.ReportMatch(ctx, "host", tournament.ID, semifinal.ID, ReportMatchInput{WinnerID: winnerID})
	require.NoError(t, err)

	final := findMatch(t, updated, 2, 1)
	require.NotNil(t, final.PlayerAID)
	assert.Equal(t, winnerID, *final.PlayerAID)

	reported := findMatch(t, updated, 1, 1)
	assert.Equal(t, models.MatchStatusCompleted, reported.Status)

	for _, p := range updated.Participants {
		switch p.UserID {
		case winnerID:
			assert.Equal(t, 1, p.Wins)
			assert.Equal(t, 3, p.Points)
			assert.False(t, p.IsEliminated)
		case loserID:
			assert.Equal(t, 1, p.Losses)
			assert.True(t, p.IsEliminated)
		}
	}

	// Equal starting ratings, so the winner takes K/2 from the loser.
	assert.Equal(t, 1020, f.ratingRepo.ratings[winnerID].GlobalRating)
	assert.Equal(t, 980, f.ratingRepo.ratings[loserID].GlobalRating)
}

func TestTournamentServiceCompletion(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t, models.FormatSingleElimination, "p1", "p2", "p3", "p4")
	ctx := context.Background()

	m1 := findMatch(t, tournament, 1, 1)
	m2 := findMatch(t, tournament, 1, 2)

	updated, err := f.svc.ReportMatch(ctx, "host", tournament.ID, m1.ID, ReportMatchInput{WinnerID: *m1.PlayerAID})
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusActive, updated.Status)
	assert.Equal(t, 1, updated.CurrentRound)

	updated, err = f.svc.ReportMatch(ctx, "host", tournament.ID, m2.ID, ReportMatchInput{WinnerID: *m2.PlayerAID})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentRound)

	final := findMatch(t, updated, 2, 1)
	require.NotNil(t, final.PlayerAID)
	require.NotNil(t, final.PlayerBID)

	champion := *final.PlayerAID
	updated, err = f.svc.ReportMatch(ctx, "host", tournament.ID, final.ID, ReportMatchInput{WinnerID: champion})
	require.NoError(t, err)

	assert.Equal(t, models.TournamentStatusEnded, updated.Status)
	require.NotNil(t, updated.ChampionID)
	assert.Equal(t, champion, *updated.ChampionID)
	require.NotEmpty(t, updated.Standings)
	assert.Equal(t, champion, updated.Standings[0].UserID)
	assert.Equal(t, 1, updated.Standings[0].Rank)
	assert.Equal(t, 2, updated.Standings[0].Wins)
	require.NotNil(t, updated.EndedAt)

	// Reports against an ended tournament are rejected.
	_, err = f.svc.ReportMatch(ctx, "host", tournament.ID, final.ID, ReportMatchInput{WinnerID: champion})
	assert.ErrorIs(t, err, ErrTournamentAlreadyEnded)
}

func TestTournamentServiceReportValidation(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t, models.FormatSingleElimination, "p1", "p2", "p3", "p4")
	ctx := context.Background()

	m1 := findMatch(t, tournament, 1, 1)
	final := findMatch(t, tournament, 2, 1)

	_, err := f.svc.ReportMatch(ctx, "p1", tournament.ID, m1.ID, ReportMatchInput{WinnerID: *m1.PlayerAID})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = f.svc.ReportMatch(ctx, "host", tournament.ID, final.ID, ReportMatchInput{WinnerID: "p1"})
	assert.ErrorIs(t, err, ErrMatchNotReady)

	_, err = f.svc.ReportMatch(ctx, "host", tournament.ID, m1.ID, ReportMatchInput{WinnerID: "host"})
	assert.ErrorIs(t, err, ErrWinnerNotInMatch)

	_, err = f.svc.ReportMatch(ctx, "host", tournament.ID, m1.ID, ReportMatchInput{WinnerID: *m1.PlayerAID})
	require.NoError(t, err)
	_, err = f.svc.ReportMatch(ctx, "host", tournament.ID, m1.ID, ReportMatchInput{WinnerID: *m1.PlayerAID})
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
}

func TestTournamentServiceRoundRobinCompletion(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t, models.FormatRoundRobin, "p1", "p2", "p3")
	ctx := context.Background()

	// p1 beats everyone, p2 beats p3.
	var updated *models.Tournament
	var err error
	for _, m := range tournament.Matches {
		winner := *m.PlayerAID
		if *m.PlayerBID == "p1" {
			winner = "p1"
		} else if *m.PlayerAID != "p1" && *m.PlayerAID != "p2" {
			winner = *m.PlayerBID
		}
		updated, err = f.svc.ReportMatch(ctx, "host", tournament.ID, m.ID, ReportMatchInput{WinnerID: winner})
		require.NoError(t, err)
	}

	assert.Equal(t, models.TournamentStatusEnded, updated.Status)
	require.NotNil(t, updated.ChampionID)
	assert.Equal(t, "p1", *updated.ChampionID)

	// Nobody is eliminated in round robin.
	for _, p := range updated.Participants {
		assert.False(t, p.IsEliminated)
	}
}

func TestTournamentServiceInterleavedFinalReports(t *testing.T) {
	f := newTournamentFixture(t)
	tournament := f.create(t, models.FormatRoundRobin, "p1", "p2", "p3")
	ctx := context.Background()

	first := findMatch(t, tournament, 1, 1)  // p1 vs p2
	second := findMatch(t, tournament, 1, 2) // p1 vs p3
	third := findMatch(t, tournament, 1, 3)  // p2 vs p3

	_, err := f.svc.ReportMatch(ctx, "host", tournament.ID, first.ID, ReportMatchInput{WinnerID: "p1"})
	require.NoError(t, err)

	// A competing report of the other remaining match lands after this
	// report's validation reads but before its transaction opens, the way two
	// racing requests would interleave. The second transaction must still see
	// the committed completion and end the tournament.
	f.txRunner.beforeTx = func() {
		_, err := f.svc.ReportMatch(ctx, "host", tournament.ID, second.ID, ReportMatchInput{WinnerID: "p1"})
		require.NoError(t, err)
	}

	updated, err := f.svc.ReportMatch(ctx, "host", tournament.ID, third.ID, ReportMatchInput{WinnerID: "p2"})
	require.NoError(t, err)

	assert.Equal(t, models.TournamentStatusEnded, updated.Status)
	require.NotNil(t, updated.ChampionID)
	assert.Equal(t, "p1", *updated.ChampionID)
	require.NotNil(t, updated.EndedAt)

	pending, err := f.matchRepo.CountPending(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)

	// Counters accumulate across the interleaved reports instead of one
	// report overwriting the other's view of p1.
	for _, p := range updated.Participants {
		switch p.UserID {
		case "p1":
			assert.Equal(t, 2, p.Wins)
			assert.Equal(t, 6, p.Points)
		case "p2":
			assert.Equal(t, 1, p.Wins)
			assert.Equal(t, 1, p.Losses)
		case "p3":
			assert.Equal(t, 0, p.Wins)
			assert.Equal(t, 2, p.Losses)
		}
	}
}
