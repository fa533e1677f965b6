package codes

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/djkaif/Scribble-bot/shared/logger"
)

const (
	// CodeTTL is how long an issued code stays redeemable.
	CodeTTL = 3 * time.Minute
	// IssueCooldown is the minimum delay between two issuances for
	// the same identity.
	IssueCooldown = time.Minute

	sweepInterval = time.Minute
	codeBytes     = 4
)

var (
	ErrCooldownActive  = errors.New("cooldown active")
	ErrInvalidCode     = errors.New("invalid code")
	ErrCodeExpired     = errors.New("code expired")
	ErrCodeAlreadyUsed = errors.New("code already used")
)

// Code is the issuance result handed back to the frontend.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

// Binding is what a successful redemption yields: which room the code
// opens and who it was granted to.
type Binding struct {
	RoomID      string
	Identity    string
	DisplayName string
}

type entry struct {
	binding   Binding
	expiresAt time.Time
	used      bool
}

// Registry issues and redeems single-use join codes. All state is
// in-memory; expired codes are reclaimed by Sweep.
type Registry struct {
	locker    sync.Mutex
	codes     map[string]*entry
	lastIssue map[string]time.Time
	now       func() time.Time
	randRead  func(b []byte) (int, error)
}

func NewRegistry() *Registry {
	return &Registry{
		codes:     make(map[string]*entry),
		lastIssue: make(map[string]time.Time),
		now:       time.Now,
		randRead:  rand.Read,
	}
}

// Issue creates a fresh code binding identity to roomID. The same
// identity cannot be issued a second code within IssueCooldown.
func (r *Registry) Issue(identity, roomID, displayName string) (Code, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	now := r.now()
	if last, ok := r.lastIssue[identity]; ok && now.Sub(last) < IssueCooldown {
		return Code{}, ErrCooldownActive
	}

	value, err := r.randomCode()
	if err != nil {
		logger.Criticalf("[Codes] Couldn't generate a code: %v", err)
		return Code{}, err
	}
	expiresAt := now.Add(CodeTTL)
	r.codes[value] = &entry{
		binding:   Binding{RoomID: roomID, Identity: identity, DisplayName: displayName},
		expiresAt: expiresAt,
	}
	r.lastIssue[identity] = now

	logger.Infof("[Codes] Issued code for identity %s, room %s, expires %v", identity, roomID, expiresAt)
	return Code{Value: value, ExpiresAt: expiresAt}, nil
}

// Redeem consumes a code for the given room. The used flag flips under
// the registry lock, so two redemptions of the same code can never both
// succeed. A code presented to the wrong room is refused without being
// consumed, so it still opens the room it was issued for.
func (r *Registry) Redeem(value, roomID string) (Binding, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	e, ok := r.codes[value]
	if !ok {
		return Binding{}, ErrInvalidCode
	}
	if !r.now().Before(e.expiresAt) {
		delete(r.codes, value)
		return Binding{}, ErrCodeExpired
	}
	if e.used {
		return Binding{}, ErrCodeAlreadyUsed
	}
	if e.binding.RoomID != roomID {
		return Binding{}, ErrInvalidCode
	}

	e.used = true
	return e.binding, nil
}

// Sweep drops every expired code and reports how many were removed.
func (r *Registry) Sweep() int {
	r.locker.Lock()
	defer r.locker.Unlock()

	now := r.now()
	removed := 0
	for value, e := range r.codes {
		if !now.Before(e.expiresAt) {
			delete(r.codes, value)
			removed++
		}
	}
	return removed
}

// RunSweeper runs Sweep on a fixed interval until stop closes.
func (r *Registry) RunSweeper(stop <-chan struct{}) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 {
				logger.Debugf("[Codes] Swept %d expired codes", removed)
			}
		case <-stop:
			return
		}
	}
}

func (r *Registry) randomCode() (string, error) {
	b := make([]byte, codeBytes)
	if _, err := r.randRead(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
