package matchmaker

import "errors"

var (
	// ErrNotRegistered means the user never finished profile setup.
	ErrNotRegistered = errors.New("user has not completed registration")
	// ErrBanned means the user is blocked from matchmaking.
	ErrBanned = errors.New("user is banned")
	// ErrAlreadyInChat rejects queue entry while a session is open.
	ErrAlreadyInChat = errors.New("user already has an active chat")
	// ErrDailyLimit means a free user exhausted today's chats.
	ErrDailyLimit = errors.New("daily chat limit reached")
	// ErrPremiumRequired rejects a feature reserved for the higher plans.
	ErrPremiumRequired = errors.New("feature requires a pro or vip plan")
	// ErrSessionNotFound means the referenced session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnreachableParticipant aborts a match whose participant could not
	// be delivered the pairing notice.
	ErrUnreachableParticipant = errors.New("participant unreachable")
)
