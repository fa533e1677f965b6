package game

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/djkaif/Scribble-bot/codes"
	"github.com/djkaif/Scribble-bot/notify"
	"github.com/djkaif/Scribble-bot/shared/logger"
)

const (
	// MaxPlayers caps room membership.
	MaxPlayers = 8
	// RoundSeconds is the countdown for one drawer+word cycle.
	RoundSeconds = 90
	// GuessReward is added to a guesser's score on a correct guess.
	GuessReward = 50
	// HintInterval is the countdown step at which one more character
	// is revealed (at 60 and 30 seconds left with a 90s round).
	HintInterval = 30
	// EmptyRoomGrace is how long an empty room survives before the
	// tick evicts it, allowing brief reconnects.
	EmptyRoomGrace = 2 * time.Minute
)

// WordPicker supplies the secret word for each round.
type WordPicker interface {
	Random() string
}

// CodeRedeemer consumes one-time join codes; *codes.Registry is the
// production implementation.
type CodeRedeemer interface {
	Redeem(code, roomID string) (codes.Binding, error)
}

// Store owns every live room. All operations serialize behind its
// lock, take effect synchronously and return the broadcasts they
// produced; the session layer dispatches them.
type Store struct {
	locker   sync.Mutex
	rooms    map[string]*Room
	redeemer CodeRedeemer
	words    WordPicker
	notifier notify.Notifier
	now      func() time.Time
	randInt  func(n int) int
}

func NewStore(redeemer CodeRedeemer, words WordPicker, notifier notify.Notifier) *Store {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Store{
		rooms:    make(map[string]*Room),
		redeemer: redeemer,
		words:    words,
		notifier: notifier,
		now:      time.Now,
		randInt:  rand.Intn,
	}
}

// CreateRoom allocates a fresh session for a channel. intendedDrawer
// optionally names the external identity that should draw first.
func (s *Store) CreateRoom(channel, intendedDrawer string) string {
	s.locker.Lock()
	defer s.locker.Unlock()

	now := s.now()
	room := &Room{
		ID:             uuid.NewString(),
		Channel:        channel,
		IntendedDrawer: intendedDrawer,
		scores:         make(map[string]int),
		names:          make(map[string]string),
		word:           strings.ToLower(s.words.Random()),
		revealed:       make(map[int]bool),
		timeLeft:       RoundSeconds,
		skipVotes:      make(map[string]bool),
		createdAt:      now,
		emptySince:     now, // grace clock runs until someone joins
	}
	s.rooms[room.ID] = room

	logger.Infof("[Room %s] Created for channel %s", room.ID, channel)
	return room.ID
}

// RoomExists reports whether a room id is still live.
func (s *Store) RoomExists(roomID string) bool {
	s.locker.Lock()
	defer s.locker.Unlock()
	_, ok := s.rooms[roomID]
	return ok
}

// Join admits a connection after redeeming its code. Rejections come
// back as typed errors for the session layer to relay; on success the
// new member and the rest of the room get the full state sync.
func (s *Store) Join(conn, roomID, code string) ([]Outgoing, error) {
	s.locker.Lock()
	defer s.locker.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	// Capacity is checked before the code is consumed so a join that
	// bounces off a full room doesn't burn it.
	if len(room.players) >= MaxPlayers {
		return nil, ErrRoomFull
	}

	binding, err := s.redeemer.Redeem(code, roomID)
	if err != nil {
		return nil, err
	}

	p := &Participant{Conn: conn, Identity: binding.Identity, Name: binding.DisplayName}
	room.players = append(room.players, p)
	if _, rejoined := room.scores[p.Identity]; !rejoined {
		room.scores[p.Identity] = 0
	}
	room.names[p.Identity] = p.Name
	room.emptySince = time.Time{}

	// First member draws, unless the intended drawer shows up later
	// and takes over the brush.
	if room.drawerConn == "" || (room.IntendedDrawer != "" && p.Identity == room.IntendedDrawer) {
		room.drawerConn = conn
	}

	logger.Infof("[Room %s] %s joined (%d/%d players)", room.ID, p.Name, len(room.players), MaxPlayers)

	out := []Outgoing{{To: conn, Packet: MakePacketInit(room.playerNames())}}
	out = append(out, room.broadcast(MakePacketPlayers(room.playerNames()))...)
	out = append(out, room.broadcast(MakePacketScores(room.scoreboard()))...)
	out = append(out, room.syncRolesAndWord()...)
	out = append(out, room.broadcast(MakePacketSystem(p.Name+" joined the game"))...)

	s.announce(room.Channel, p.Name+" joined the game")
	return out, nil
}

// Guess evaluates chat text. The drawer's messages and wrong guesses
// are echoed as ordinary chat; a correct guess scores and starts the
// next round.
func (s *Store) Guess(conn, roomID, text string) []Outgoing {
	s.locker.Lock()
	defer s.locker.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	p := room.byConn(conn)
	if p == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	guess := strings.ToLower(strings.TrimSpace(text))
	if conn != room.drawerConn && guess == room.word {
		word := room.word
		room.scores[p.Identity] += GuessReward

		logger.Infof("[Room %s] %s guessed the word %q", room.ID, p.Name, word)

		out := room.broadcast(MakePacketSystem(p.Name + " guessed it: " + word + "!"))
		out = append(out, room.broadcast(MakePacketScores(room.scoreboard()))...)
		out = append(out, s.advanceRound(room)...)

		s.announce(room.Channel, p.Name+" guessed the word "+word)
		return out
	}

	return room.broadcast(MakePacketChat(p.Name, text))
}

// Leave removes a connection from its room. A departing drawer hands
// the brush on; the last member out starts the eviction grace clock.
func (s *Store) Leave(conn, roomID string) []Outgoing {
	s.locker.Lock()
	defer s.locker.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	i := room.indexOfConn(conn)
	if i < 0 {
		return nil
	}
	p := room.players[i]
	room.players = append(room.players[:i], room.players[i+1:]...)
	delete(room.skipVotes, conn)

	logger.Infof("[Room %s] %s left (%d players remain)", room.ID, p.Name, len(room.players))

	out := room.broadcast(MakePacketPlayers(room.playerNames()))
	out = append(out, room.broadcast(MakePacketSystem(p.Name+" left the game"))...)

	if len(room.players) == 0 {
		room.drawerConn = ""
		room.emptySince = s.now()
	} else if conn == room.drawerConn {
		out = append(out, s.advanceRound(room)...)
	}

	s.announce(room.Channel, p.Name+" left the game")
	return out
}

// VoteSkip records a non-drawer's skip vote. A strict majority of the
// non-drawer members advances the round immediately.
func (s *Store) VoteSkip(conn, roomID string) []Outgoing {
	s.locker.Lock()
	defer s.locker.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	p := room.byConn(conn)
	if p == nil || conn == room.drawerConn {
		return nil
	}

	room.skipVotes[conn] = true

	nonDrawers := 0
	votes := 0
	for _, member := range room.players {
		if member.Conn == room.drawerConn {
			continue
		}
		nonDrawers++
		if room.skipVotes[member.Conn] {
			votes++
		}
	}

	if votes*2 > nonDrawers {
		logger.Infof("[Room %s] Skip vote passed (%d/%d)", room.ID, votes, nonDrawers)
		out := room.broadcast(MakePacketSystem("Vote passed, skipping the round"))
		return append(out, s.advanceRound(room)...)
	}

	return room.broadcast(MakePacketSystem(
		p.Name + " voted to skip (" + strconv.Itoa(votes) + "/" + strconv.Itoa(nonDrawers) + ")"))
}

// Tick advances every live room by one second: countdowns, character
// reveals at the hint checkpoints, round turnover at zero, and grace
// eviction of empty rooms.
func (s *Store) Tick() []Outgoing {
	s.locker.Lock()
	defer s.locker.Unlock()

	now := s.now()
	var out []Outgoing
	for id, room := range s.rooms {
		if len(room.players) == 0 {
			if now.Sub(room.emptySince) > EmptyRoomGrace {
				delete(s.rooms, id)
				logger.Infof("[Room %s] Evicted after grace period", id)
			}
			continue
		}

		room.timeLeft--
		if room.timeLeft <= 0 {
			out = append(out, room.broadcast(MakePacketSystem("Time's up! The word was "+room.word))...)
			out = append(out, s.advanceRound(room)...)
			continue
		}

		out = append(out, room.broadcast(MakePacketTimer(room.timeLeft))...)

		if room.timeLeft%HintInterval == 0 {
			if idx, ok := room.pickUnrevealed(s.randInt); ok {
				room.revealed[idx] = true
				out = append(out, room.hintsForGuessers()...)
			}
		}
	}
	return out
}

// ScoresSummary renders a plain-text leaderboard for every room
// spawned from the given channel. ok is false when the channel has no
// live rooms.
func (s *Store) ScoresSummary(channel string) (string, bool) {
	s.locker.Lock()
	defer s.locker.Unlock()

	type line struct {
		name  string
		score int
	}
	var lines []line
	found := false
	for _, room := range s.rooms {
		if room.Channel != channel {
			continue
		}
		found = true
		for identity, score := range room.scores {
			lines = append(lines, line{name: room.names[identity], score: score})
		}
	}
	if !found {
		return "", false
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].score != lines[j].score {
			return lines[i].score > lines[j].score
		}
		return lines[i].name < lines[j].name
	})

	var b strings.Builder
	b.WriteString("Scoreboard:")
	for i, l := range lines {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(l.name)
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(l.score))
	}
	return b.String(), true
}

// Peers lists the connections in a room except the given one. The
// session layer uses it to relay drawing strokes verbatim.
func (s *Store) Peers(roomID, except string) []string {
	s.locker.Lock()
	defer s.locker.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	peers := make([]string, 0, len(room.players))
	for _, p := range room.players {
		if p.Conn == except {
			continue
		}
		peers = append(peers, p.Conn)
	}
	return peers
}

// advanceRound rotates the brush to the next member in join order,
// picks a fresh word and resets the countdown, reveals and votes.
// Callers hold the store lock.
func (s *Store) advanceRound(room *Room) []Outgoing {
	if len(room.players) == 0 {
		room.drawerConn = ""
		return nil
	}

	// A missing drawer (disconnected mid-round) lands on index -1,
	// which hands the brush to the first member.
	i := room.indexOfConn(room.drawerConn)
	room.drawerConn = room.players[(i+1)%len(room.players)].Conn

	room.word = strings.ToLower(s.words.Random())
	room.revealed = make(map[int]bool)
	room.timeLeft = RoundSeconds
	room.skipVotes = make(map[string]bool)

	logger.Infof("[Room %s] New round, drawer is %s", room.ID, room.byConn(room.drawerConn).Name)

	out := room.broadcast(MakePacketRound())
	out = append(out, room.broadcast(MakePacketSystem("New round started!"))...)
	out = append(out, room.broadcast(MakePacketTimer(room.timeLeft))...)
	out = append(out, room.syncRolesAndWord()...)

	s.announce(room.Channel, "A new round started")
	return out
}

// announce fires the notifier without ever blocking a game operation.
func (s *Store) announce(channel, text string) {
	go s.notifier.Announce(channel, text)
}
