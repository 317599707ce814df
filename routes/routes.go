package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/boardnight/server/handlers"
	"github.com/boardnight/server/middleware"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Game       *handlers.GameHandler
	Night      *handlers.NightHandler
	Tournament *handlers.TournamentHandler
	Friend     *handlers.FriendHandler
	WebSocket  *handlers.WebSocketHandler
}

func SetupRoutes(
	router *chi.Mux,
	h Handlers,
	auth *middleware.Authenticator,
	limiter middleware.RateLimiter,
	logger *slog.Logger,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	// Realtime subscriptions; the room is a night or tournament id.
	router.Get("/ws/{roomID}", h.WebSocket.Subscribe)

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", h.User.GetMe)
			r.Patch("/", h.User.UpdateMe)
			r.Post("/avatar", h.User.UploadAvatar)
			r.Get("/rating", h.User.GetMyRating)
		})

		r.Route("/games", func(r chi.Router) {
			r.Get("/", h.Game.List)
			r.Post("/", h.Game.Create)
			r.Get("/{gameID}", h.Game.GetByID)
		})

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", h.Friend.List)
			r.Post("/", h.Friend.SendRequest)
			r.Post("/{friendshipID}/respond", h.Friend.Respond)
		})

		r.Route("/nights", func(r chi.Router) {
			r.Get("/", h.Night.ListMine)
			r.With(middleware.RateLimit(limiter, logger, "night-create", middleware.LimitNightCreate)).
				Post("/", h.Night.Create)
			r.With(middleware.RateLimit(limiter, logger, "night-join", middleware.LimitNightJoin)).
				Post("/join", h.Night.Join)
			r.Get("/{nightID}", h.Night.GetByID)
			r.Put("/{nightID}/scores", h.Night.UpdateScore)
			r.With(middleware.RateLimit(limiter, logger, "night-end", middleware.LimitNightEnd)).
				Post("/{nightID}/end", h.Night.End)
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.ListMine)
			r.With(middleware.RateLimit(limiter, logger, "tournament-create", middleware.LimitTournamentCreate)).
				Post("/", h.Tournament.Create)
			r.Get("/{tournamentID}", h.Tournament.GetByID)
			r.With(middleware.RateLimit(limiter, logger, "match-report", middleware.LimitMatchReport)).
				Post("/{tournamentID}/matches/{matchID}/report", h.Tournament.ReportMatch)
		})
	})
}
