package matchmaker_test

import (
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) MatchFound(userID int64, sessionID uint, partnerID int64) error {
	args := m.Called(userID, sessionID, partnerID)
	return args.Error(0)
}

func (m *MockNotifier) MatchAborted(userID int64) {
	m.Called(userID)
}

func (m *MockNotifier) SessionEnded(userID int64, sessionID uint, partnerID int64, endedByPartner bool) {
	m.Called(userID, sessionID, partnerID, endedByPartner)
}

func (m *MockNotifier) SearchCancelled(userID int64) {
	m.Called(userID)
}
