package matchmaker_test

import (
	"errors"
	"testing"
	"time"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/matchmaker"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func strPtr(s string) *string { return &s }

func freeUser(id int64, gender string) *models.User {
	return &models.User{ID: id, Gender: gender, Registered: true}
}

func vipUser(id int64, gender string) *models.User {
	until := time.Now().Add(24 * time.Hour)
	return &models.User{
		ID: id, Gender: gender, Registered: true,
		IsPremium: true, PremiumPlan: models.PlanVIP, PremiumUntil: &until,
	}
}

func newTestEngine(fs *fakeStorage, fb *fakeBridge, n *MockNotifier) *matchmaker.Engine {
	return matchmaker.NewEngine(fs, fb, n)
}

// TestScanPairsTwoCompatibleUsers verifies the happy path: two unfiltered
// searchers end up in one session with matching index and state entries.
func TestScanPairsTwoCompatibleUsers(t *testing.T) {
	// Arrange
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	notifier.On("MatchFound", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	engine := newTestEngine(fs, fb, notifier)

	fs.addUser(freeUser(1, "male"))
	fs.addUser(freeUser(2, "female"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	assert.NoError(t, engine.EnterQueue(2, nil))

	// Act
	engine.ScanRound()

	// Assert
	p1, ok := engine.CurrentPairing(1)
	assert.True(t, ok)
	assert.Equal(t, int64(2), p1.PartnerID)
	p2, ok := engine.CurrentPairing(2)
	assert.True(t, ok)
	assert.Equal(t, int64(1), p2.PartnerID)
	assert.Equal(t, p1.SessionID, p2.SessionID)

	sess, err := fs.GetSession(p1.SessionID)
	assert.NoError(t, err)
	assert.Equal(t, models.SessionActive, sess.Status)

	for _, id := range []int64{1, 2} {
		st, _ := fb.Get(id)
		assert.Equal(t, state.InChat, st)
		in, _ := fs.InSearchQueue(id)
		assert.False(t, in, "matched user should leave the queue")
	}
	notifier.AssertNumberOfCalls(t, "MatchFound", 2)
}

// TestScanPriorityOrder verifies that a later-queued VIP is served before
// free users who have waited longer, and pairs with the earliest of them.
func TestScanPriorityOrder(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	notifier.On("MatchFound", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	engine := newTestEngine(fs, fb, notifier)

	fs.addUser(freeUser(1, "male"))
	fs.addUser(freeUser(2, "female"))
	fs.addUser(vipUser(3, "female"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	time.Sleep(2 * time.Millisecond)
	assert.NoError(t, engine.EnterQueue(2, nil))
	time.Sleep(2 * time.Millisecond)
	assert.NoError(t, engine.EnterQueue(3, nil))

	engine.ScanRound()

	// the VIP heads the scan and takes the longest-waiting free user
	p3, ok := engine.CurrentPairing(3)
	assert.True(t, ok)
	assert.Equal(t, int64(1), p3.PartnerID)

	_, ok = engine.CurrentPairing(2)
	assert.False(t, ok, "odd user out should stay unmatched")
	in, _ := fs.InSearchQueue(2)
	assert.True(t, in, "unmatched user should remain queued")
}

// TestScanMutualFilter verifies that a pair is only formed when both gender
// filters accept each other.
func TestScanMutualFilter(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	notifier.On("MatchFound", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	engine := newTestEngine(fs, fb, notifier)

	// both premium so their filters are honored
	fs.addUser(vipUser(1, "male"))
	fs.addUser(vipUser(2, "female"))
	assert.NoError(t, engine.EnterQueue(1, strPtr("female")))
	assert.NoError(t, engine.EnterQueue(2, strPtr("male")))

	engine.ScanRound()

	_, ok := engine.CurrentPairing(1)
	assert.True(t, ok, "mutually accepting filters should match")
}

// TestScanOneSidedFilterBlocks verifies that one side accepting is not
// enough: the candidate's own filter must accept back.
func TestScanOneSidedFilterBlocks(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	engine := newTestEngine(fs, fb, notifier)

	fs.addUser(vipUser(1, "male"))
	fs.addUser(vipUser(2, "male"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	assert.NoError(t, engine.EnterQueue(2, strPtr("female")))

	engine.ScanRound()

	_, ok := engine.CurrentPairing(1)
	assert.False(t, ok)
	in, _ := fs.InSearchQueue(1)
	assert.True(t, in)
	in, _ = fs.InSearchQueue(2)
	assert.True(t, in)
	notifier.AssertNotCalled(t, "MatchFound", mock.Anything, mock.Anything, mock.Anything)
}

// TestScanEvictsAlreadyPairedUser verifies that a queue row for a user who is
// already in a chat is treated as stale: the pairing index wins and the row
// is removed without forming a match.
func TestScanEvictsAlreadyPairedUser(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	engine := newTestEngine(fs, fb, notifier)

	fs.addUser(freeUser(1, "male"))
	fs.addUser(freeUser(2, "female"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	assert.NoError(t, engine.EnterQueue(2, nil))
	// user 1 is somehow already chatting with user 9
	engine.Pairings.SetPair(77, 1, 9)

	engine.ScanRound()

	in, _ := fs.InSearchQueue(1)
	assert.False(t, in, "stale queue row should be evicted")
	in, _ = fs.InSearchQueue(2)
	assert.True(t, in, "the other searcher keeps waiting")
	notifier.AssertNotCalled(t, "MatchFound", mock.Anything, mock.Anything, mock.Anything)
}

// TestScanRollsBackWhenFirstParticipantUnreachable verifies that a failed
// match notice undoes the whole pairing: session closed, index and states
// cleared.
func TestScanRollsBackWhenFirstParticipantUnreachable(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	notifier.On("MatchFound", int64(1), mock.Anything, int64(2)).Return(errors.New("bot blocked"))
	engine := newTestEngine(fs, fb, notifier)

	fs.addUser(freeUser(1, "male"))
	fs.addUser(freeUser(2, "female"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	assert.NoError(t, engine.EnterQueue(2, nil))

	engine.ScanRound()

	_, ok := engine.CurrentPairing(1)
	assert.False(t, ok)
	_, ok = engine.CurrentPairing(2)
	assert.False(t, ok)
	for _, id := range []int64{1, 2} {
		st, _ := fb.Get(id)
		assert.Equal(t, state.Idle, st)
	}
	sess, _ := fs.GetSession(1)
	if assert.NotNil(t, sess) {
		assert.Equal(t, models.SessionEnded, sess.Status, "half-committed session must be closed")
	}
}

// TestScanAbortsReachablePartnerOnSecondFailure verifies that when the
// second notice fails, the first participant (who already saw a match) gets
// an abort notice.
func TestScanAbortsReachablePartnerOnSecondFailure(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	notifier.On("MatchFound", int64(1), mock.Anything, int64(2)).Return(nil)
	notifier.On("MatchFound", int64(2), mock.Anything, int64(1)).Return(errors.New("bot blocked"))
	notifier.On("MatchAborted", int64(1)).Return()
	engine := newTestEngine(fs, fb, notifier)

	fs.addUser(freeUser(1, "male"))
	fs.addUser(freeUser(2, "female"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	assert.NoError(t, engine.EnterQueue(2, nil))

	engine.ScanRound()

	_, ok := engine.CurrentPairing(1)
	assert.False(t, ok)
	notifier.AssertCalled(t, "MatchAborted", int64(1))
}

// TestEnterQueueGuards exercises the rejection reasons for queue entry.
func TestEnterQueueGuards(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	engine := newTestEngine(fs, fb, new(MockNotifier))

	// unknown user
	assert.ErrorIs(t, engine.EnterQueue(1, nil), matchmaker.ErrNotRegistered)

	// registration not finished
	fs.addUser(&models.User{ID: 2, Gender: "male"})
	assert.ErrorIs(t, engine.EnterQueue(2, nil), matchmaker.ErrNotRegistered)

	// banned
	banned := freeUser(3, "male")
	banned.IsBanned = true
	fs.addUser(banned)
	assert.ErrorIs(t, engine.EnterQueue(3, nil), matchmaker.ErrBanned)

	// already chatting
	fs.addUser(freeUser(4, "male"))
	engine.Pairings.SetPair(5, 4, 9)
	assert.ErrorIs(t, engine.EnterQueue(4, nil), matchmaker.ErrAlreadyInChat)

	// free daily limit exhausted
	tired := freeUser(5, "male")
	tired.DailyChats = config.FreeDailyChats
	fs.addUser(tired)
	assert.ErrorIs(t, engine.EnterQueue(5, nil), matchmaker.ErrDailyLimit)
}

// TestEnterQueueIgnoresFilterForFreeUsers verifies that a partner filter from
// a non-premium user is dropped before the entry is stored.
func TestEnterQueueIgnoresFilterForFreeUsers(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	engine := newTestEngine(fs, fb, new(MockNotifier))

	fs.addUser(freeUser(1, "male"))
	assert.NoError(t, engine.EnterQueue(1, strPtr("female")))

	snapshot, err := fs.OrderedQueueSnapshot()
	assert.NoError(t, err)
	if assert.Len(t, snapshot, 1) {
		assert.Nil(t, snapshot[0].GenderFilter)
	}
	st, _ := fb.Get(1)
	assert.Equal(t, state.Searching, st)
}

// TestReEnterQueueKeepsPosition verifies that re-entering the queue updates
// the filter but does not move the user to the back of the line.
func TestReEnterQueueKeepsPosition(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	engine := newTestEngine(fs, fb, new(MockNotifier))

	fs.addUser(vipUser(1, "male"))
	fs.addUser(vipUser(2, "female"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	time.Sleep(2 * time.Millisecond)
	assert.NoError(t, engine.EnterQueue(2, nil))
	time.Sleep(2 * time.Millisecond)
	assert.NoError(t, engine.EnterQueue(1, strPtr("female")))

	snapshot, err := fs.OrderedQueueSnapshot()
	assert.NoError(t, err)
	if assert.Len(t, snapshot, 2) {
		assert.Equal(t, int64(1), snapshot[0].UserID, "re-entry must not lose the place in line")
		if assert.NotNil(t, snapshot[0].GenderFilter) {
			assert.Equal(t, "female", *snapshot[0].GenderFilter)
		}
	}
}

// TestLeaveQueue verifies cancellation clears both the row and the state,
// and that cancelling while not queued is harmless.
func TestLeaveQueue(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	engine := newTestEngine(fs, fb, new(MockNotifier))

	fs.addUser(freeUser(1, "male"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	assert.NoError(t, engine.LeaveQueue(1))

	in, _ := fs.InSearchQueue(1)
	assert.False(t, in)
	st, _ := fb.Get(1)
	assert.Equal(t, state.Idle, st)

	assert.NoError(t, engine.LeaveQueue(1), "leaving twice should be a no-op")
}

// TestEndSessionReleasesBothSides verifies teardown: durable close, index
// removal, state reset and notices for both participants.
func TestEndSessionReleasesBothSides(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	notifier.On("MatchFound", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	notifier.On("SessionEnded", int64(1), mock.Anything, int64(2), false).Return()
	notifier.On("SessionEnded", int64(2), mock.Anything, int64(1), true).Return()
	engine := newTestEngine(fs, fb, notifier)

	fs.addUser(freeUser(1, "male"))
	fs.addUser(freeUser(2, "female"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	assert.NoError(t, engine.EnterQueue(2, nil))
	engine.ScanRound()

	pr, ok := engine.CurrentPairing(1)
	assert.True(t, ok)

	// Act: user 1 ends the chat
	assert.NoError(t, engine.EndSession(pr.SessionID, 1))

	// Assert
	_, ok = engine.CurrentPairing(1)
	assert.False(t, ok)
	_, ok = engine.CurrentPairing(2)
	assert.False(t, ok)
	sess, _ := fs.GetSession(pr.SessionID)
	assert.Equal(t, models.SessionEnded, sess.Status)
	if assert.NotNil(t, sess.EndedBy) {
		assert.Equal(t, int64(1), *sess.EndedBy)
	}
	notifier.AssertCalled(t, "SessionEnded", int64(2), pr.SessionID, int64(1), true)
}

// TestEndSessionIdempotent verifies that closing an already-ended session is
// a pure no-op: no repeated notices, and participants who have moved on
// since the first close keep their current state and queue position.
func TestEndSessionIdempotent(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	notifier.On("MatchFound", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	notifier.On("SessionEnded", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	engine := newTestEngine(fs, fb, notifier)

	fs.addUser(freeUser(1, "male"))
	fs.addUser(freeUser(2, "female"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	assert.NoError(t, engine.EnterQueue(2, nil))
	engine.ScanRound()

	pr, ok := engine.CurrentPairing(1)
	assert.True(t, ok)
	assert.NoError(t, engine.EndSession(pr.SessionID, 1))
	notifier.AssertNumberOfCalls(t, "SessionEnded", 2)

	// user 1 starts a new search before the stale close arrives
	assert.NoError(t, engine.EnterQueue(1, nil))

	// Act: a second close with the same ID (stale pairing read, admin
	// force-end, relay failure) races the user's new search
	assert.NoError(t, engine.EndSession(pr.SessionID, 1))

	// Assert: no extra notices, the new search is untouched
	notifier.AssertNumberOfCalls(t, "SessionEnded", 2)
	in, _ := fs.InSearchQueue(1)
	assert.True(t, in, "re-entered search must survive the stale close")
	st, _ := fb.Get(1)
	assert.Equal(t, state.Searching, st)
}

// TestLeaveQueueKeepsInChatState verifies that a cancel arriving after the
// match formed does not pull an in-chat user back to idle.
func TestLeaveQueueKeepsInChatState(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	notifier.On("MatchFound", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	engine := newTestEngine(fs, fb, notifier)

	fs.addUser(freeUser(1, "male"))
	fs.addUser(freeUser(2, "female"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	assert.NoError(t, engine.EnterQueue(2, nil))
	engine.ScanRound()

	assert.NoError(t, engine.LeaveQueue(1))

	st, _ := fb.Get(1)
	assert.Equal(t, state.InChat, st)
	_, ok := engine.CurrentPairing(1)
	assert.True(t, ok, "pairing must survive a late cancel")
}

// TestEnterQueueWithTopicRequiresProPlan verifies the plan gate on
// topic-scoped searches.
func TestEnterQueueWithTopicRequiresProPlan(t *testing.T) {
	fs := newFakeStorage()
	engine := newTestEngine(fs, newFakeBridge(), new(MockNotifier))

	fs.addUser(freeUser(1, "male"))
	until := time.Now().Add(24 * time.Hour)
	fs.addUser(&models.User{
		ID: 2, Gender: "female", Registered: true,
		IsPremium: true, PremiumPlan: models.PlanBasic, PremiumUntil: &until,
	})
	fs.addUser(vipUser(3, "female"))

	assert.ErrorIs(t, engine.EnterQueueWithTopic(1, "🌙 Night owls"), matchmaker.ErrPremiumRequired)
	assert.ErrorIs(t, engine.EnterQueueWithTopic(2, "🌙 Night owls"), matchmaker.ErrPremiumRequired)
	assert.NoError(t, engine.EnterQueueWithTopic(3, "🌙 Night owls"))

	in, _ := fs.InSearchQueue(3)
	assert.True(t, in)
}

// TestTopicSearchFlowsIntoSession verifies that the requested topic wins
// over the interest intersection and lands on the opened session.
func TestTopicSearchFlowsIntoSession(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	notifier.On("MatchFound", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	engine := newTestEngine(fs, fb, notifier)

	vip := vipUser(1, "male")
	vip.Interests = []string{"books"}
	fs.addUser(vip)
	partner := freeUser(2, "female")
	partner.Interests = []string{"books"}
	fs.addUser(partner)

	assert.NoError(t, engine.EnterQueueWithTopic(1, "🌙 Night owls"))
	assert.NoError(t, engine.EnterQueue(2, nil))
	engine.ScanRound()

	pr, ok := engine.CurrentPairing(1)
	assert.True(t, ok)
	sess, _ := fs.GetSession(pr.SessionID)
	assert.Equal(t, "🌙 Night owls", sess.Topic)
}

// TestEndSessionForWithoutSession verifies the error for users not in a chat.
func TestEndSessionForWithoutSession(t *testing.T) {
	engine := newTestEngine(newFakeStorage(), newFakeBridge(), new(MockNotifier))
	_, err := engine.EndSessionFor(42)
	assert.ErrorIs(t, err, matchmaker.ErrSessionNotFound)
}

// TestRecoverResetsEverything verifies the cold-start procedure: stale
// sessions force-ended, queue drained with cancellation notices, index and
// states empty.
func TestRecoverResetsEverything(t *testing.T) {
	fs := newFakeStorage()
	fb := newFakeBridge()
	notifier := new(MockNotifier)
	notifier.On("MatchFound", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	notifier.On("SearchCancelled", mock.Anything).Return()
	engine := newTestEngine(fs, fb, notifier)

	fs.addUser(freeUser(1, "male"))
	fs.addUser(freeUser(2, "female"))
	fs.addUser(freeUser(3, "male"))
	assert.NoError(t, engine.EnterQueue(1, nil))
	assert.NoError(t, engine.EnterQueue(2, nil))
	engine.ScanRound()
	assert.NoError(t, engine.EnterQueue(3, nil))

	// simulate a restart: a fresh engine sees the same durable state
	restarted := newTestEngine(fs, fb, notifier)
	assert.NoError(t, restarted.Recover())

	sess, _ := fs.ActiveSessionFor(1)
	assert.Nil(t, sess, "stale sessions must be force-ended")
	in, _ := fs.InSearchQueue(3)
	assert.False(t, in, "queue must be drained")
	assert.Equal(t, 0, restarted.Pairings.Len())
	for _, id := range []int64{1, 2, 3} {
		st, _ := fb.Get(id)
		assert.Equal(t, state.Idle, st)
	}
	notifier.AssertCalled(t, "SearchCancelled", int64(3))
}
