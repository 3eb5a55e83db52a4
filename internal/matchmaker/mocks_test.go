package matchmaker_test

import (
	"sort"
	"sync"
	"time"

	"anonpair/backend/internal/models"
	"anonpair/backend/internal/state"
	"anonpair/backend/internal/storage"
)

// fakeStorage is an in-memory stand-in for the real GORM/Redis service.
// Users, queue and sessions behave like the real thing; the parts the engine
// never touches are stubbed out.
type fakeStorage struct {
	mu       sync.Mutex
	users    map[int64]*models.User
	queue    map[int64]*models.SearchEntry
	sessions map[uint]*models.ChatSession
	nextID   uint
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:    make(map[int64]*models.User),
		queue:    make(map[int64]*models.SearchEntry),
		sessions: make(map[uint]*models.ChatSession),
	}
}

func (f *fakeStorage) addUser(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeStorage) GetUser(id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStorage) IsUserBanned(id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	return ok && u.IsBanned, nil
}

func (f *fakeStorage) EnqueueSearcher(entry *models.SearchEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.queue[entry.UserID]; ok {
		// place in line is preserved on re-entry
		entry.EnqueuedAt = existing.EnqueuedAt
	}
	cp := *entry
	f.queue[entry.UserID] = &cp
	return nil
}

func (f *fakeStorage) DequeueSearcher(userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.queue, userID)
	return nil
}

func (f *fakeStorage) InSearchQueue(userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.queue[userID]
	return ok, nil
}

func (f *fakeStorage) OrderedQueueSnapshot() ([]models.WaitingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WaitingEntry
	for _, e := range f.queue {
		u := f.users[e.UserID]
		if u == nil || u.IsBanned {
			continue
		}
		out = append(out, models.WaitingEntry{
			UserID:       e.UserID,
			Gender:       u.Gender,
			GenderFilter: e.GenderFilter,
			Interests:    e.Interests,
			Topic:        e.Topic,
			PriorityTier: e.PriorityTier,
			EnqueuedAt:   e.EnqueuedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PriorityTier != out[j].PriorityTier {
			return out[i].PriorityTier > out[j].PriorityTier
		}
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out, nil
}

func (f *fakeStorage) ClearSearchQueue() ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id := range f.queue {
		ids = append(ids, id)
	}
	f.queue = make(map[int64]*models.SearchEntry)
	return ids, nil
}

func (f *fakeStorage) OpenSession(userA, userB int64, topic string) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Status == models.SessionActive && (s.Involves(userA) || s.Involves(userB)) {
			return nil, storage.ErrDuplicateActiveSession
		}
	}
	f.nextID++
	sess := &models.ChatSession{
		ID:        f.nextID,
		UserA:     userA,
		UserB:     userB,
		Topic:     topic,
		Status:    models.SessionActive,
		StartedAt: time.Now(),
	}
	f.sessions[sess.ID] = sess
	delete(f.queue, userA)
	delete(f.queue, userB)
	return sess, nil
}

func (f *fakeStorage) CloseSession(sessionID uint, endedBy *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || s.Status != models.SessionActive {
		return nil
	}
	now := time.Now()
	s.Status = models.SessionEnded
	s.EndedAt = &now
	s.EndedBy = endedBy
	return nil
}

func (f *fakeStorage) ActiveSessionFor(userID int64) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Status == models.SessionActive && s.Involves(userID) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStorage) GetSession(sessionID uint) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStorage) ReconcileActiveSessions() ([]models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stale []models.ChatSession
	now := time.Now()
	for _, s := range f.sessions {
		if s.Status == models.SessionActive {
			stale = append(stale, *s)
			s.Status = models.SessionEnded
			s.EndedAt = &now
		}
	}
	return stale, nil
}

// The engine never calls anything below; minimal stubs keep the interface
// satisfied.

func (f *fakeStorage) GetOrCreateUser(id int64, username, firstName, refCode string) (*models.User, error) {
	return f.GetUser(id)
}
func (f *fakeStorage) SaveUser(user *models.User) error { f.addUser(user); return nil }
func (f *fakeStorage) UpdateProfile(id int64, gender string, interests []string) error {
	return nil
}
func (f *fakeStorage) BanUser(id int64, reason string) error { return nil }
func (f *fakeStorage) UnbanUser(id int64) error              { return nil }
func (f *fakeStorage) ActivatePlan(id int64, plan string, days int) error {
	return nil
}
func (f *fakeStorage) ExpirePlans() (int64, error)               { return 0, nil }
func (f *fakeStorage) ResetDailyCounters() (int64, error)        { return 0, nil }
func (f *fakeStorage) LogMessage(entry *models.MessageLog) error { return nil }
func (f *fakeStorage) AddReport(report *models.Report) error     { return nil }
func (f *fakeStorage) ReviewReport(reportID uint, ban bool) error {
	return nil
}
func (f *fakeStorage) ListReports(status string, limit, offset int) ([]models.Report, error) {
	return nil, nil
}
func (f *fakeStorage) RateUser(raterID, ratedID int64, sessionID uint, value int) error {
	return nil
}
func (f *fakeStorage) CreatePayment(p *models.Payment) error { return nil }
func (f *fakeStorage) ConfirmPayment(paymentID uint, ref string) (*models.Payment, error) {
	return nil, nil
}
func (f *fakeStorage) PendingPayment(userID int64, provider string) (*models.Payment, error) {
	return nil, nil
}
func (f *fakeStorage) CreatePromo(code, plan string, days, maxUses int, expiresIn time.Duration) error {
	return nil
}
func (f *fakeStorage) RedeemPromo(code string, userID int64) (*models.PromoCode, error) {
	return nil, nil
}
func (f *fakeStorage) ListTopics(activeOnly bool) ([]models.HotTopic, error) {
	return nil, nil
}
func (f *fakeStorage) CreateTopic(text string) error            { return nil }
func (f *fakeStorage) DeleteTopic(id uint) error                { return nil }
func (f *fakeStorage) ToggleTopic(id uint, active bool) error   { return nil }
func (f *fakeStorage) CreateBroadcast(b *models.Broadcast) error { return nil }
func (f *fakeStorage) FinishBroadcast(id uint, sent int, status string) error {
	return nil
}
func (f *fakeStorage) AudienceIDs(audience string) ([]int64, error) { return nil, nil }
func (f *fakeStorage) Stats() (*storage.Stats, error)               { return &storage.Stats{}, nil }
func (f *fakeStorage) ListUsers(limit, offset int, search string) ([]models.User, int64, error) {
	return nil, 0, nil
}
func (f *fakeStorage) RealtimeSnapshot() (*storage.Realtime, error) {
	return &storage.Realtime{}, nil
}

// fakeBridge is an in-memory conversation state store.
type fakeBridge struct {
	mu     sync.Mutex
	states map[int64]state.State
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{states: make(map[int64]state.State)}
}

func (b *fakeBridge) Set(userID int64, st state.State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st == state.Idle {
		delete(b.states, userID)
		return nil
	}
	b.states[userID] = st
	return nil
}

func (b *fakeBridge) Get(userID int64) (state.State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.states[userID], nil
}

func (b *fakeBridge) Clear(userID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, userID)
	return nil
}
