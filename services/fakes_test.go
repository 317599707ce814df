package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/boardnight/server/engine"
	"github.com/boardnight/server/models"
	"github.com/boardnight/server/repositories"
)

// In-memory repository doubles. RunInTx passes a nil executor because the
// fakes keep state in maps rather than in SQL.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTxRunner struct {
	// beforeTx, when set, runs once immediately before the next transaction
	// body. Tests use it to land a competing write between a service's
	// validation reads and its own transaction.
	beforeTx func()
}

func (f *fakeTxRunner) RunInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	if hook := f.beforeTx; hook != nil {
		f.beforeTx = nil
		hook()
	}
	return fn(nil)
}

type fakeAuditRepo struct {
	entries []*models.AuditLog
}

func (f *fakeAuditRepo) Insert(_ context.Context, _ repositories.SQLExecutor, entry *models.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo(ids ...string) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, id := range ids {
		f.users[id] = &models.User{ID: id, Email: id + "@example.com", Username: id}
	}
	return f
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) ListByIDs(_ context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdateAvatarKey(_ context.Context, id string, avatarKey *string) error {
	user, ok := f.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.AvatarKey = avatarKey
	return nil
}

type fakeGameRepo struct {
	games map[string]*models.Game
}

func newFakeGameRepo(ids ...string) *fakeGameRepo {
	f := &fakeGameRepo{games: make(map[string]*models.Game)}
	for _, id := range ids {
		f.games[id] = &models.Game{ID: id, Name: "game-" + id, MinPlayers: 2, MaxPlayers: 8}
	}
	return f
}

func (f *fakeGameRepo) Create(_ context.Context, game *models.Game) error {
	f.games[game.ID] = game
	return nil
}

func (f *fakeGameRepo) GetByID(_ context.Context, id string) (*models.Game, error) {
	game, ok := f.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	return game, nil
}

func (f *fakeGameRepo) List(_ context.Context) ([]*models.Game, error) {
	games := make([]*models.Game, 0, len(f.games))
	for _, game := range f.games {
		games = append(games, game)
	}
	return games, nil
}

type fakeFriendRepo struct {
	friendships []*models.Friendship
}

func (f *fakeFriendRepo) accept(a, b string) {
	f.friendships = append(f.friendships, &models.Friendship{
		ID: a + ":" + b, RequesterID: a, AddresseeID: b, Status: models.FriendStatusAccepted,
	})
}

func (f *fakeFriendRepo) Create(_ context.Context, friendship *models.Friendship) error {
	f.friendships = append(f.friendships, friendship)
	return nil
}

func (f *fakeFriendRepo) GetByID(_ context.Context, id string) (*models.Friendship, error) {
	for _, fr := range f.friendships {
		if fr.ID == id {
			return fr, nil
		}
	}
	return nil, repositories.ErrFriendshipNotFound
}

func (f *fakeFriendRepo) GetBetween(_ context.Context, userA, userB string) (*models.Friendship, error) {
	for _, fr := range f.friendships {
		if (fr.RequesterID == userA && fr.AddresseeID == userB) ||
			(fr.RequesterID == userB && fr.AddresseeID == userA) {
			return fr, nil
		}
	}
	return nil, repositories.ErrFriendshipNotFound
}

func (f *fakeFriendRepo) UpdateStatus(_ context.Context, id string, status models.FriendStatus) error {
	for _, fr := range f.friendships {
		if fr.ID == id {
			fr.Status = status
			return nil
		}
	}
	return repositories.ErrFriendshipNotFound
}

func (f *fakeFriendRepo) ListAcceptedFriendIDs(_ context.Context, userID string) ([]string, error) {
	ids := make([]string, 0)
	for _, fr := range f.friendships {
		if fr.Status != models.FriendStatusAccepted {
			continue
		}
		switch userID {
		case fr.RequesterID:
			ids = append(ids, fr.AddresseeID)
		case fr.AddresseeID:
			ids = append(ids, fr.RequesterID)
		}
	}
	return ids, nil
}

type fakeRatingRepo struct {
	ratings map[string]*models.Rating
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{ratings: make(map[string]*models.Rating)}
}

func (f *fakeRatingRepo) GetByUserID(_ context.Context, userID string) (*models.Rating, error) {
	rating, ok := f.ratings[userID]
	if !ok {
		return nil, repositories.ErrRatingNotFound
	}
	return rating, nil
}

func (f *fakeRatingRepo) GetByUserIDs(_ context.Context, userIDs []string) (map[string]*models.Rating, error) {
	out := make(map[string]*models.Rating)
	for _, id := range userIDs {
		if rating, ok := f.ratings[id]; ok {
			out[id] = rating
		}
	}
	return out, nil
}

func (f *fakeRatingRepo) ApplyDelta(_ context.Context, _ repositories.SQLExecutor, userID string, delta int, won bool) error {
	rating, ok := f.ratings[userID]
	if !ok {
		rating = &models.Rating{UserID: userID, GlobalRating: engine.DefaultRating}
		f.ratings[userID] = rating
	}
	rating.GlobalRating += delta
	rating.GamesPlayed++
	if won {
		rating.Wins++
	}
	return nil
}

type fakeNightRepo struct {
	nights       map[string]*models.GameNight
	participants []*models.NightParticipant
}

func newFakeNightRepo() *fakeNightRepo {
	return &fakeNightRepo{nights: make(map[string]*models.GameNight)}
}

func (f *fakeNightRepo) Create(_ context.Context, _ repositories.SQLExecutor, night *models.GameNight) error {
	for _, existing := range f.nights {
		if existing.JoinCode == night.JoinCode {
			return repositories.ErrNightJoinCodeConflict
		}
	}
	f.nights[night.ID] = night
	return nil
}

func (f *fakeNightRepo) GetByID(_ context.Context, id string) (*models.GameNight, error) {
	night, ok := f.nights[id]
	if !ok {
		return nil, repositories.ErrNightNotFound
	}
	copied := *night
	return &copied, nil
}

func (f *fakeNightRepo) GetByJoinCode(_ context.Context, joinCode string) (*models.GameNight, error) {
	for _, night := range f.nights {
		if night.JoinCode == joinCode {
			copied := *night
			return &copied, nil
		}
	}
	return nil, repositories.ErrNightNotFound
}

func (f *fakeNightRepo) ListByParticipant(_ context.Context, userID string) ([]*models.GameNight, error) {
	nights := make([]*models.GameNight, 0)
	for _, p := range f.participants {
		if p.UserID == userID {
			if night, ok := f.nights[p.GameNightID]; ok {
				nights = append(nights, night)
			}
		}
	}
	return nights, nil
}

func (f *fakeNightRepo) MarkEnded(_ context.Context, _ repositories.SQLExecutor, id string, winnerID string, summary *models.NightSummary, endedAt time.Time) error {
	night, ok := f.nights[id]
	if !ok || night.Status != models.NightStatusActive {
		return repositories.ErrNightAlreadyEnded
	}
	night.Status = models.NightStatusEnded
	night.WinnerID = &winnerID
	night.Summary = summary
	night.EndedAt = &endedAt
	return nil
}

func (f *fakeNightRepo) AddParticipant(_ context.Context, _ repositories.SQLExecutor, participant *models.NightParticipant) error {
	for _, p := range f.participants {
		if p.GameNightID == participant.GameNightID && p.UserID == participant.UserID {
			return repositories.ErrNightParticipantConflict
		}
	}
	f.participants = append(f.participants, participant)
	return nil
}

func (f *fakeNightRepo) GetParticipant(_ context.Context, nightID, userID string) (*models.NightParticipant, error) {
	for _, p := range f.participants {
		if p.GameNightID == nightID && p.UserID == userID {
			return p, nil
		}
	}
	return nil, repositories.ErrNightParticipantNotFound
}

func (f *fakeNightRepo) ListParticipants(_ context.Context, nightID string) ([]*models.NightParticipant, error) {
	participants := make([]*models.NightParticipant, 0)
	for _, p := range f.participants {
		if p.GameNightID == nightID {
			participants = append(participants, p)
		}
	}
	return participants, nil
}

func (f *fakeNightRepo) CountParticipants(_ context.Context, nightID string) (int, error) {
	count := 0
	for _, p := range f.participants {
		if p.GameNightID == nightID {
			count++
		}
	}
	return count, nil
}

type fakeScoreRepo struct {
	scores  []*models.NightScore
	results []*models.NightResult
}

func (f *fakeScoreRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, score *models.NightScore) error {
	for i, existing := range f.scores {
		if existing.GameNightID == score.GameNightID &&
			existing.UserID == score.UserID &&
			existing.RoundIndex == score.RoundIndex {
			f.scores[i] = score
			return nil
		}
	}
	f.scores = append(f.scores, score)
	return nil
}

func (f *fakeScoreRepo) ListByNight(_ context.Context, nightID string) ([]*models.NightScore, error) {
	scores := make([]*models.NightScore, 0)
	for _, s := range f.scores {
		if s.GameNightID == nightID {
			scores = append(scores, s)
		}
	}
	return scores, nil
}

func (f *fakeScoreRepo) InsertResult(_ context.Context, _ repositories.SQLExecutor, result *models.NightResult) error {
	f.results = append(f.results, result)
	return nil
}

func (f *fakeScoreRepo) ListResultsByNight(_ context.Context, nightID string) ([]*models.NightResult, error) {
	results := make([]*models.NightResult, 0)
	for _, r := range f.results {
		if r.GameNightID == nightID {
			results = append(results, r)
		}
	}
	return results, nil
}

type fakeTournamentRepo struct {
	tournaments map[string]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[string]*models.Tournament)}
}

func (f *fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, tournament *models.Tournament) error {
	stored := *tournament
	f.tournaments[tournament.ID] = &stored
	return nil
}

func (f *fakeTournamentRepo) GetByID(_ context.Context, id string) (*models.Tournament, error) {
	tournament, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *tournament
	return &copied, nil
}

func (f *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, _ repositories.SQLExecutor, id string) (*models.Tournament, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeTournamentRepo) ListByHost(_ context.Context, hostID string) ([]*models.Tournament, error) {
	tournaments := make([]*models.Tournament, 0)
	for _, t := range f.tournaments {
		if t.HostID == hostID {
			tournaments = append(tournaments, t)
		}
	}
	return tournaments, nil
}

func (f *fakeTournamentRepo) UpdateCurrentRound(_ context.Context, _ repositories.SQLExecutor, id string, round int) error {
	tournament, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	tournament.CurrentRound = round
	return nil
}

func (f *fakeTournamentRepo) MarkEnded(_ context.Context, _ repositories.SQLExecutor, id string, championID string, standings []models.Standing, endedAt time.Time) error {
	tournament, ok := f.tournaments[id]
	if !ok || tournament.Status != models.TournamentStatusActive {
		return repositories.ErrTournamentAlreadyEnded
	}
	tournament.Status = models.TournamentStatusEnded
	tournament.ChampionID = &championID
	tournament.Standings = standings
	tournament.EndedAt = &endedAt
	return nil
}

type fakeParticipantRepo struct {
	participants []*models.TournamentParticipant
}

func (f *fakeParticipantRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, participants []*models.TournamentParticipant) error {
	for _, p := range participants {
		stored := *p
		f.participants = append(f.participants, &stored)
	}
	return nil
}

func (f *fakeParticipantRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID string) ([]*models.TournamentParticipant, error) {
	out := make([]*models.TournamentParticipant, 0)
	for _, p := range f.participants {
		if p.TournamentID == tournamentID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeParticipantRepo) IncrementCounters(_ context.Context, _ repositories.SQLExecutor, id string, wins, losses, points int, eliminated bool) error {
	for _, p := range f.participants {
		if p.ID == id {
			p.Wins += wins
			p.Losses += losses
			p.Points += points
			if eliminated {
				p.IsEliminated = true
			}
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

type fakeMatchRepo struct {
	matches []*models.Match
}

func (f *fakeMatchRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, matches []*models.Match) error {
	for _, m := range matches {
		stored := *m
		f.matches = append(f.matches, &stored)
	}
	return nil
}

func (f *fakeMatchRepo) GetByID(_ context.Context, id string) (*models.Match, error) {
	for _, m := range f.matches {
		if m.ID == id {
			copied := *m
			return &copied, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (f *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID string) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, m := range f.matches {
		if m.TournamentID == tournamentID {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeMatchRepo) Complete(_ context.Context, _ repositories.SQLExecutor, id string, winnerID string, scoreA, scoreB *int, completedAt time.Time) error {
	for _, m := range f.matches {
		if m.ID == id {
			if m.Status != models.MatchStatusPending {
				return repositories.ErrMatchAlreadyCompleted
			}
			m.WinnerID = &winnerID
			m.ScoreA = scoreA
			m.ScoreB = scoreB
			m.Status = models.MatchStatusCompleted
			m.CompletedAt = &completedAt
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

func (f *fakeMatchRepo) SetPlayerSlot(_ context.Context, _ repositories.SQLExecutor, matchID string, slot int, playerID string) error {
	for _, m := range f.matches {
		if m.ID == matchID {
			if slot == 1 {
				m.PlayerAID = &playerID
			} else {
				m.PlayerBID = &playerID
			}
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

func (f *fakeMatchRepo) CountPending(_ context.Context, _ repositories.SQLExecutor, tournamentID string) (int, error) {
	count := 0
	for _, m := range f.matches {
		if m.TournamentID == tournamentID && m.Status == models.MatchStatusPending {
			count++
		}
	}
	return count, nil
}

func (f *fakeMatchRepo) CountPendingInRound(_ context.Context, _ repositories.SQLExecutor, tournamentID string, round int) (int, error) {
	count := 0
	for _, m := range f.matches {
		if m.TournamentID == tournamentID && m.RoundNumber == round && m.Status == models.MatchStatusPending {
			count++
		}
	}
	return count, nil
}
