// Package state keeps each participant's conversation state in a Redis key
// of its own, addressable by user ID alone. Any component — the matcher, a
// termination path, the recovery procedure — can move a user between states
// without a live Telegram update in hand; that is what lets the matcher put
// both halves of a new pair into "in_chat" at once.
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// State is one conversation-machine value.
type State string

const (
	// Idle is the default: not registering, not searching, not chatting.
	// It is represented by an absent key.
	Idle State = ""

	ChoosingGender    State = "choosing_gender"
	ChoosingInterests State = "choosing_interests"
	ChoosingFilter    State = "choosing_filter"
	Searching         State = "searching"
	InChat            State = "in_chat"
	EnteringPromo     State = "entering_promo"
)

// Bridge is the write/read surface other components depend on.
type Bridge interface {
	Set(userID int64, st State) error
	Get(userID int64) (State, error)
	Clear(userID int64) error
}

// Store implements Bridge on Redis.
type Store struct {
	Redis *redis.Client
	Ctx   context.Context
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{Redis: rdb, Ctx: context.Background()}
}

func stateKey(userID int64) string {
	return fmt.Sprintf("state:%d", userID)
}

// Set writes the state. Setting Idle deletes the key.
func (s *Store) Set(userID int64, st State) error {
	if st == Idle {
		return s.Clear(userID)
	}
	return s.Redis.Set(s.Ctx, stateKey(userID), string(st), 0).Err()
}

// Get returns the current state; a missing key reads as Idle.
func (s *Store) Get(userID int64) (State, error) {
	val, err := s.Redis.Get(s.Ctx, stateKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return Idle, nil
	}
	if err != nil {
		return Idle, err
	}
	return State(val), nil
}

func (s *Store) Clear(userID int64) error {
	return s.Redis.Del(s.Ctx, stateKey(userID)).Err()
}
