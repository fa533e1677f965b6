package game

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/djkaif/Scribble-bot/codes"
)

// --- WordPicker ---

type MockWordPicker struct {
	mock.Mock
}

func (m *MockWordPicker) Random() string {
	args := m.Called()
	return args.String(0)
}

// --- CodeRedeemer ---

type MockCodeRedeemer struct {
	mock.Mock
}

func (m *MockCodeRedeemer) Redeem(code, roomID string) (codes.Binding, error) {
	args := m.Called(code, roomID)
	return args.Get(0).(codes.Binding), args.Error(1)
}

// --- Notifier ---

// recordingNotifier collects announcements. Announce runs on the
// store's fire-and-forget goroutines, hence the lock.
type recordingNotifier struct {
	locker sync.Mutex
	seen   []string
}

func (n *recordingNotifier) Announce(channel, text string) {
	n.locker.Lock()
	defer n.locker.Unlock()
	n.seen = append(n.seen, channel+": "+text)
}

func (n *recordingNotifier) snapshot() []string {
	n.locker.Lock()
	defer n.locker.Unlock()
	return append([]string(nil), n.seen...)
}
