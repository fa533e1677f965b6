package game

import (
	"time"

	"github.com/djkaif/Scribble-bot/words"
)

// Participant is one live connection inside a room.
type Participant struct {
	Conn     string
	Identity string
	Name     string
}

// Room is a single game session. All fields are guarded by the owning
// Store's lock; the Room itself has no concurrency of its own.
type Room struct {
	ID             string
	Channel        string
	IntendedDrawer string

	players    []*Participant // join order, drives drawer rotation
	scores     map[string]int // keyed by identity so rejoins keep their score
	names      map[string]string
	drawerConn string // empty when the room has no members
	word       string // always lowercase
	revealed   map[int]bool
	timeLeft   int
	skipVotes  map[string]bool
	createdAt  time.Time
	emptySince time.Time
}

func (r *Room) byConn(conn string) *Participant {
	for _, p := range r.players {
		if p.Conn == conn {
			return p
		}
	}
	return nil
}

func (r *Room) indexOfConn(conn string) int {
	for i, p := range r.players {
		if p.Conn == conn {
			return i
		}
	}
	return -1
}

func (r *Room) playerNames() []string {
	names := make([]string, 0, len(r.players))
	for _, p := range r.players {
		names = append(names, p.Name)
	}
	return names
}

// scoreboard maps display names to scores. Identities that left keep
// their entry for the lifetime of the room.
func (r *Room) scoreboard() map[string]int {
	board := make(map[string]int, len(r.scores))
	for identity, score := range r.scores {
		board[r.names[identity]] = score
	}
	return board
}

func (r *Room) broadcast(packet Packet) []Outgoing {
	out := make([]Outgoing, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, Outgoing{To: p.Conn, Packet: packet})
	}
	return out
}

// syncRolesAndWord tells every member whether it holds the brush and
// what it should see of the word: the full word for the drawer, the
// masked form for everyone else.
func (r *Room) syncRolesAndWord() []Outgoing {
	out := make([]Outgoing, 0, 2*len(r.players))
	masked := words.Mask(r.word, r.revealed)
	for _, p := range r.players {
		isDrawer := p.Conn == r.drawerConn
		out = append(out, Outgoing{To: p.Conn, Packet: MakePacketRoleUpdate(isDrawer)})
		display := masked
		if isDrawer {
			display = r.word
		}
		out = append(out, Outgoing{To: p.Conn, Packet: MakePacketHint(display)})
	}
	return out
}

// hintsForGuessers re-sends the masked word to non-drawers after a
// character reveal. The drawer already sees the full word.
func (r *Room) hintsForGuessers() []Outgoing {
	out := make([]Outgoing, 0, len(r.players))
	masked := words.Mask(r.word, r.revealed)
	for _, p := range r.players {
		if p.Conn == r.drawerConn {
			continue
		}
		out = append(out, Outgoing{To: p.Conn, Packet: MakePacketHint(masked)})
	}
	return out
}

// pickUnrevealed selects one still-hidden rune index, using randInt
// to choose among the candidates. Returns false when nothing is left
// to reveal.
func (r *Room) pickUnrevealed(randInt func(n int) int) (int, bool) {
	candidates := make([]int, 0, len(r.word))
	for i := range []rune(r.word) {
		if !r.revealed[i] {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[randInt(len(candidates))], true
}
