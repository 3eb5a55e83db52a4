package matchmaker

import "sync"

// Pairing is one side of an active chat as the engine sees it.
type Pairing struct {
	SessionID uint
	PartnerID int64
}

// PairingIndex mirrors durable active sessions in memory so that the hot
// paths (message relay, queue guards) never touch the database. Both sides
// of a pair are always written and removed together under one lock.
type PairingIndex struct {
	mu     sync.RWMutex
	byUser map[int64]Pairing
}

func NewPairingIndex() *PairingIndex {
	return &PairingIndex{byUser: make(map[int64]Pairing)}
}

// Get returns the pairing for userID, if any.
func (p *PairingIndex) Get(userID int64) (Pairing, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pr, ok := p.byUser[userID]
	return pr, ok
}

// Contains reports whether userID is currently paired.
func (p *PairingIndex) Contains(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byUser[userID]
	return ok
}

// SetPair records both sides of a new session atomically.
func (p *PairingIndex) SetPair(sessionID uint, a, b int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser[a] = Pairing{SessionID: sessionID, PartnerID: b}
	p.byUser[b] = Pairing{SessionID: sessionID, PartnerID: a}
}

// RemovePair drops userID and its partner from the index. It returns the
// pairing that was removed, or false if userID was not paired.
func (p *PairingIndex) RemovePair(userID int64) (Pairing, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.byUser[userID]
	if !ok {
		return Pairing{}, false
	}
	delete(p.byUser, userID)
	delete(p.byUser, pr.PartnerID)
	return pr, true
}

// Reset empties the index. Used by startup recovery.
func (p *PairingIndex) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser = make(map[int64]Pairing)
}

// Len reports the number of indexed participants (two per active session).
func (p *PairingIndex) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser)
}
