package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardnight/server/middleware"
	"github.com/boardnight/server/models"
	"github.com/boardnight/server/services"
)

type stubTournamentService struct {
	tournament *models.Tournament
	err        error
}

func (s *stubTournamentService) Create(_ context.Context, _ string, _ services.CreateTournamentInput) (*models.Tournament, error) {
	return s.tournament, s.err
}

func (s *stubTournamentService) ReportMatch(_ context.Context, _ string, _ string, _ string, _ services.ReportMatchInput) (*models.Tournament, error) {
	return s.tournament, s.err
}

func (s *stubTournamentService) GetByID(_ context.Context, _ string) (*models.Tournament, error) {
	return s.tournament, s.err
}

func (s *stubTournamentService) ListMine(_ context.Context, _ string) ([]*models.Tournament, error) {
	return []*models.Tournament{s.tournament}, s.err
}

func signTestToken(t *testing.T, secret, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestTournamentHandlerReportMatchIsComplete(t *testing.T) {
	const secret = "handler-test-secret"
	token := signTestToken(t, secret, "host")

	cases := []struct {
		name   string
		status models.TournamentStatus
		want   bool
	}{
		{"still running", models.TournamentStatusActive, false},
		{"final match reported", models.TournamentStatusEnded, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewTournamentHandler(&stubTournamentService{
				tournament: &models.Tournament{ID: "t1", Status: tc.status},
			})

			router := chi.NewRouter()
			auth := middleware.NewAuthenticator(secret)
			router.With(auth.Authenticate).
				Post("/tournaments/{tournamentID}/matches/{matchID}/report", handler.ReportMatch)

			req := httptest.NewRequest(http.MethodPost,
				"/tournaments/t1/matches/m1/report", strings.NewReader(`{"winner_id":"p1"}`))
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)

			var payload struct {
				IsComplete bool `json:"is_complete"`
				Tournament struct {
					ID string `json:"id"`
				} `json:"tournament"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, tc.want, payload.IsComplete)
			assert.Equal(t, "t1", payload.Tournament.ID)
		})
	}
}
