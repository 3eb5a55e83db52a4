// Package matchmaker pairs waiting participants into anonymous 1:1 chats.
// A fixed-interval scan walks the durable queue in priority order and commits
// mutually compatible pairs; an in-memory index mirrors the active sessions.
package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/state"
	"anonpair/backend/internal/storage"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// MatchNotifier delivers matchmaking notices to participants. MatchFound is
// part of the pairing commit: a failed delivery aborts the match and rolls
// the session back. The remaining notices are best effort.
type MatchNotifier interface {
	MatchFound(userID int64, sessionID uint, partnerID int64) error
	MatchAborted(userID int64)
	SessionEnded(userID int64, sessionID uint, partnerID int64, endedByPartner bool)
	SearchCancelled(userID int64)
}

// EventSink receives session lifecycle events for external consumers such as
// the message broker. Implementations must not block.
type EventSink interface {
	SessionOpened(sessionID uint, userA, userB int64)
	SessionClosed(sessionID uint, endedBy *int64)
}

// Engine owns the waiting pool, the pairing scan and active-session
// bookkeeping. All chat entry and exit goes through it.
type Engine struct {
	Storage  storage.Storage
	States   state.Bridge
	Notifier MatchNotifier
	Pairings *PairingIndex
	Events   EventSink // optional

	Interval time.Duration

	// serializes pair commits against session teardown so a cancel cannot
	// interleave with a half-committed match
	mu  sync.Mutex
	log *logrus.Entry
}

func NewEngine(st storage.Storage, states state.Bridge, notifier MatchNotifier) *Engine {
	return &Engine{
		Storage:  st,
		States:   states,
		Notifier: notifier,
		Pairings: NewPairingIndex(),
		Interval: 3 * time.Second,
		log:      logrus.WithField("component", "matchmaker"),
	}
}

// Run executes the pairing scan every Interval until ctx is cancelled.
// Rounds never overlap: the next tick waits for the previous round.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()
	e.log.WithField("interval", e.Interval).Info("pairing engine started")
	for {
		select {
		case <-ctx.Done():
			e.log.Info("pairing engine stopped")
			return
		case <-ticker.C:
			e.ScanRound()
		}
	}
}

// ScanRound runs one pass over the queue: highest priority first, FIFO within
// a tier, greedy first-fit against later entries. A failed pair is logged and
// skipped, it never aborts the round.
func (e *Engine) ScanRound() {
	snapshot, err := e.Storage.OrderedQueueSnapshot()
	if err != nil {
		e.log.WithError(err).Error("queue snapshot failed")
		return
	}
	if len(snapshot) < 2 {
		return
	}

	claimed := make(map[int64]bool, len(snapshot))
	for formed := true; formed; {
		formed = false
		for i := range snapshot {
			a := snapshot[i]
			if claimed[a.UserID] {
				continue
			}
			if e.Pairings.Contains(a.UserID) {
				// queued while already in a chat: the pairing index
				// wins and the stale queue row is evicted
				e.log.WithField("user_id", a.UserID).Warn("queued user already paired, evicting")
				if err := e.Storage.DequeueSearcher(a.UserID); err != nil {
					e.log.WithError(err).WithField("user_id", a.UserID).Error("evict failed")
				}
				claimed[a.UserID] = true
				continue
			}
			for j := i + 1; j < len(snapshot); j++ {
				b := snapshot[j]
				if claimed[b.UserID] || e.Pairings.Contains(b.UserID) {
					continue
				}
				if !models.MutualMatch(a, b) {
					continue
				}
				if err := e.commitPair(a, b); err != nil {
					e.log.WithError(err).WithFields(logrus.Fields{
						"user_a": a.UserID,
						"user_b": b.UserID,
					}).Warn("pairing failed")
					continue
				}
				claimed[a.UserID] = true
				claimed[b.UserID] = true
				formed = true
				break
			}
		}
	}
}

var errLeftQueue = errors.New("participant left the queue")

func (e *Engine) commitPair(a, b models.WaitingEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// re-check right before committing: either side may have cancelled or
	// been matched since the snapshot was taken
	for _, entry := range []models.WaitingEntry{a, b} {
		if e.Pairings.Contains(entry.UserID) {
			return storage.ErrDuplicateActiveSession
		}
		in, err := e.Storage.InSearchQueue(entry.UserID)
		if err != nil {
			return err
		}
		if !in {
			return fmt.Errorf("%w: %d", errLeftQueue, entry.UserID)
		}
	}

	sess, err := e.Storage.OpenSession(a.UserID, b.UserID, sharedTopic(a, b))
	if err != nil {
		return err
	}
	e.Pairings.SetPair(sess.ID, a.UserID, b.UserID)

	for _, id := range []int64{a.UserID, b.UserID} {
		if err := e.States.Set(id, state.InChat); err != nil {
			e.rollback(sess.ID, a.UserID, b.UserID)
			return err
		}
	}

	if err := e.Notifier.MatchFound(a.UserID, sess.ID, b.UserID); err != nil {
		e.rollback(sess.ID, a.UserID, b.UserID)
		return fmt.Errorf("notify %d: %w", a.UserID, ErrUnreachableParticipant)
	}
	if err := e.Notifier.MatchFound(b.UserID, sess.ID, a.UserID); err != nil {
		e.rollback(sess.ID, a.UserID, b.UserID)
		// the first participant already saw the match notice
		e.Notifier.MatchAborted(a.UserID)
		return fmt.Errorf("notify %d: %w", b.UserID, ErrUnreachableParticipant)
	}

	if e.Events != nil {
		e.Events.SessionOpened(sess.ID, a.UserID, b.UserID)
	}
	e.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"user_a":     a.UserID,
		"user_b":     b.UserID,
	}).Info("pair matched")
	return nil
}

// rollback undoes a half-committed match: index entries, states and the
// freshly opened session. Participants are NOT re-enqueued, the unreachable
// one would just fail again next round.
func (e *Engine) rollback(sessionID uint, a, b int64) {
	e.Pairings.RemovePair(a)
	for _, id := range []int64{a, b} {
		if err := e.States.Clear(id); err != nil {
			e.log.WithError(err).WithField("user_id", id).Warn("state reset failed during rollback")
		}
	}
	if err := e.Storage.CloseSession(sessionID, nil); err != nil {
		e.log.WithError(err).WithField("session_id", sessionID).Error("session rollback failed")
	}
}

// sharedTopic picks the conversation topic for a fresh pair: an explicitly
// requested hot topic from either side wins, otherwise the first common
// interest, otherwise none.
func sharedTopic(a, b models.WaitingEntry) string {
	if a.Topic != "" {
		return a.Topic
	}
	if b.Topic != "" {
		return b.Topic
	}
	common := lo.Intersect(a.Interests, b.Interests)
	if len(common) == 0 {
		return ""
	}
	return common[0]
}

// EnterQueue puts userID into the waiting pool. The caller supplies only the
// desired partner filter; attributes and priority come from the profile. A
// repeated call refreshes the filter but keeps the original queue position.
func (e *Engine) EnterQueue(userID int64, genderFilter *string) error {
	return e.enqueue(userID, genderFilter, "")
}

// EnterQueueWithTopic queues userID for a topic-scoped search. Hot topics
// are a pro/vip perk.
func (e *Engine) EnterQueueWithTopic(userID int64, topic string) error {
	u, err := e.Storage.GetUser(userID)
	if err != nil {
		return err
	}
	if u == nil || !u.PremiumActive(time.Now()) ||
		(u.PremiumPlan != models.PlanPro && u.PremiumPlan != models.PlanVIP) {
		return ErrPremiumRequired
	}
	return e.enqueue(userID, nil, topic)
}

func (e *Engine) enqueue(userID int64, genderFilter *string, topic string) error {
	u, err := e.Storage.GetUser(userID)
	if err != nil {
		return err
	}
	if u == nil || !u.Registered {
		return ErrNotRegistered
	}
	banned, err := e.Storage.IsUserBanned(userID)
	if err != nil {
		return err
	}
	if banned {
		return ErrBanned
	}
	if e.Pairings.Contains(userID) {
		return ErrAlreadyInChat
	}

	now := time.Now()
	if !u.PremiumActive(now) {
		if u.DailyChats >= config.FreeDailyChats {
			return ErrDailyLimit
		}
		// partner filters are a premium perk
		genderFilter = nil
	}

	entry := &models.SearchEntry{
		UserID:       userID,
		GenderFilter: genderFilter,
		Interests:    u.Interests,
		Topic:        topic,
		PriorityTier: u.PriorityTier(now),
		EnqueuedAt:   now,
	}
	if err := e.Storage.EnqueueSearcher(entry); err != nil {
		return err
	}
	return e.States.Set(userID, state.Searching)
}

// LeaveQueue removes userID from the waiting pool. Removing an absent user
// is a no-op. A user already in a chat keeps their in_chat state; the scan
// dequeued them when the pair formed, so there is nothing to cancel.
func (e *Engine) LeaveQueue(userID int64) error {
	if err := e.Storage.DequeueSearcher(userID); err != nil {
		return err
	}
	if e.Pairings.Contains(userID) {
		return nil
	}
	return e.States.Set(userID, state.Idle)
}

// InQueue reports whether userID is currently waiting.
func (e *Engine) InQueue(userID int64) (bool, error) {
	return e.Storage.InSearchQueue(userID)
}

// CurrentPairing returns userID's active pairing, if any.
func (e *Engine) CurrentPairing(userID int64) (Pairing, bool) {
	return e.Pairings.Get(userID)
}

// EndSession closes a session and releases both participants. endedBy is the
// participant who asked for the close, or 0 for an administrative close.
// Closing an already-ended session is a no-op: the first close already
// delivered the notices, and the participants may have moved on since.
func (e *Engine) EndSession(sessionID uint, endedBy int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.Storage.GetSession(sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	if sess.Status == models.SessionEnded {
		return nil
	}

	var byPtr *int64
	if endedBy != 0 {
		byPtr = &endedBy
	}
	if err := e.Storage.CloseSession(sessionID, byPtr); err != nil {
		return err
	}
	// The index may already point at a newer session for either side.
	if pr, ok := e.Pairings.Get(sess.UserA); ok && pr.SessionID == sessionID {
		e.Pairings.RemovePair(sess.UserA)
	}
	for _, id := range []int64{sess.UserA, sess.UserB} {
		if err := e.States.Clear(id); err != nil {
			e.log.WithError(err).WithField("user_id", id).Warn("state reset failed on session end")
		}
		e.Notifier.SessionEnded(id, sessionID, sess.PartnerOf(id), endedBy != 0 && id != endedBy)
	}
	if e.Events != nil {
		e.Events.SessionClosed(sessionID, byPtr)
	}
	e.log.WithFields(logrus.Fields{"session_id": sessionID, "ended_by": endedBy}).Info("session ended")
	return nil
}

// EndSessionFor closes userID's active session, if any, and returns the
// pairing that was closed.
func (e *Engine) EndSessionFor(userID int64) (Pairing, error) {
	pr, ok := e.Pairings.Get(userID)
	if !ok {
		return Pairing{}, ErrSessionNotFound
	}
	return pr, e.EndSession(pr.SessionID, userID)
}
