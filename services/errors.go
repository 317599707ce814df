package services

import "errors"

// Errors shared across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business-rule errors.
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password must be at least 8 characters")
	ErrInvalidFormat         = errors.New("invalid tournament format")
	ErrNotEnoughParticipants = errors.New("at least two participants are required")
	ErrDuplicateParticipants = errors.New("participant list contains duplicates")
	ErrWinnerNotInMatch      = errors.New("winner is not a player of this match")
	ErrMatchNotReady         = errors.New("match does not have both players yet")
	ErrScoreRoundOutOfRange  = errors.New("round index is out of range")
	ErrWinnerNotParticipant  = errors.New("winner is not a participant")

	// Conflict errors.
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrUserUsernameConflict   = errors.New("username is already in use")
	ErrGameNameConflict       = errors.New("game name already exists")
	ErrAlreadyJoined          = errors.New("user has already joined this game night")
	ErrNightAlreadyEnded      = errors.New("game night has already ended")
	ErrTournamentAlreadyEnded = errors.New("tournament has already ended")
	ErrMatchAlreadyCompleted  = errors.New("match has already been completed")
	ErrFriendRequestExists    = errors.New("friend request already exists between these users")

	// Authentication and authorization errors.
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrNotFriendsWithHost     = errors.New("an accepted friendship with the host is required to join")

	// Entity-specific not-found errors.
	ErrUserNotFound       = errors.New("user not found")
	ErrGameNotFound       = errors.New("game not found")
	ErrNightNotFound      = errors.New("game night not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrFriendshipNotFound = errors.New("friendship not found")
)
