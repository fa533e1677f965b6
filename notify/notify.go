// Package notify delivers best-effort room-lifecycle announcements to
// an external chat frontend. Delivery failures never reach game code.
package notify

// Notifier is the one-way channel to the frontend. Implementations
// must not block the caller for long and must swallow their own errors.
type Notifier interface {
	Announce(channel, text string)
}

// Nop discards every announcement. It is the default collaborator so
// the game core runs and tests without a frontend.
type Nop struct{}

func (Nop) Announce(channel, text string) {}
