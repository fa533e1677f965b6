package game

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djkaif/Scribble-bot/codes"
)

func newTestStore() (*Store, *MockCodeRedeemer, *MockWordPicker, *recordingNotifier, *time.Time) {
	redeemer := &MockCodeRedeemer{}
	picker := &MockWordPicker{}
	notifier := &recordingNotifier{}

	s := NewStore(redeemer, picker, notifier)
	clock := time.Now()
	s.now = func() time.Time { return clock }
	s.randInt = func(n int) int { return 0 }
	return s, redeemer, picker, notifier, &clock
}

func outgoingString(o Outgoing) string {
	data, err := json.Marshal(o.Packet)
	if err != nil {
		return "to=" + o.To + " <unmarshalable>"
	}
	return "to=" + o.To + " " + string(data)
}

// assertEqualOutgoings compares broadcast sets ignoring order, the
// way dispatch order never matters to clients.
func assertEqualOutgoings(t *testing.T, expected, actual []Outgoing) {
	t.Helper()
	exp := make([]string, 0, len(expected))
	for _, o := range expected {
		exp = append(exp, outgoingString(o))
	}
	act := make([]string, 0, len(actual))
	for _, o := range actual {
		act = append(act, outgoingString(o))
	}
	sort.Strings(exp)
	sort.Strings(act)
	if diff := cmp.Diff(exp, act); diff != "" {
		t.Errorf("broadcast mismatch (-want +got):\n%s", diff)
	}
}

func makeOutgoings(args ...any) []Outgoing {
	if len(args)%2 != 0 {
		panic("must provide arguments in pairs!")
	}
	out := make([]Outgoing, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		to, ok1 := args[i].(string)
		packet, ok2 := args[i+1].(Packet)
		if !ok1 || !ok2 {
			panic("expected (string, Packet) pairs")
		}
		out = append(out, Outgoing{To: to, Packet: packet})
	}
	return out
}

// toAll expands one packet into a broadcast to every listed conn.
func toAll(packet Packet, conns ...string) []Outgoing {
	out := make([]Outgoing, 0, len(conns))
	for _, c := range conns {
		out = append(out, Outgoing{To: c, Packet: packet})
	}
	return out
}

func concat(lists ...[]Outgoing) []Outgoing {
	var out []Outgoing
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func assertAtMostOneDrawer(t *testing.T, s *Store, roomID string) {
	t.Helper()
	room, ok := s.rooms[roomID]
	if !ok {
		return
	}
	holders := 0
	for _, p := range room.players {
		if p.Conn == room.drawerConn {
			holders++
		}
	}
	assert.LessOrEqual(t, holders, 1, "more than one drawer in room")
	if len(room.players) == 0 {
		assert.Empty(t, room.drawerConn, "empty room still has a drawer")
	}
}

func TestGameScenario(t *testing.T) {
	s, redeemer, picker, _, clock := newTestStore()

	picker.On("Random").Return("apple").Once()
	picker.On("Random").Return("guitar").Once()
	picker.On("Random").Return("castle").Once()
	picker.On("Random").Return("dragon").Once()
	picker.On("Random").Return("lemon").Once()

	roomID := s.CreateRoom("channel-1", "u2")
	require.True(t, s.RoomExists(roomID))

	redeemer.On("Redeem", "c1", roomID).Return(codes.Binding{RoomID: roomID, Identity: "u1", DisplayName: "Naruto"}, nil).Once()
	redeemer.On("Redeem", "c2", roomID).Return(codes.Binding{RoomID: roomID, Identity: "u2", DisplayName: "Sasuke"}, nil).Once()
	redeemer.On("Redeem", "c3", roomID).Return(codes.Binding{RoomID: roomID, Identity: "u3", DisplayName: "Sakura"}, nil).Once()
	redeemer.On("Redeem", "bad", roomID).Return(codes.Binding{}, codes.ErrInvalidCode).Once()

	testCases := []struct {
		desc        string
		action      func() ([]Outgoing, error)
		expectedErr error
		expected    []Outgoing
	}{
		{
			desc:   "naruto joins and draws first",
			action: func() ([]Outgoing, error) { return s.Join("conn-1", roomID, "c1") },
			expected: concat(
				makeOutgoings("conn-1", MakePacketInit([]string{"Naruto"})),
				toAll(MakePacketPlayers([]string{"Naruto"}), "conn-1"),
				toAll(MakePacketScores(map[string]int{"Naruto": 0}), "conn-1"),
				makeOutgoings(
					"conn-1", MakePacketRoleUpdate(true),
					"conn-1", MakePacketHint("apple"),
				),
				toAll(MakePacketSystem("Naruto joined the game"), "conn-1"),
			),
		},
		{
			desc:        "a bad code is rejected",
			action:      func() ([]Outgoing, error) { return s.Join("conn-x", roomID, "bad") },
			expectedErr: codes.ErrInvalidCode,
		},
		{
			desc:   "sasuke joins and takes the brush as intended drawer",
			action: func() ([]Outgoing, error) { return s.Join("conn-2", roomID, "c2") },
			expected: concat(
				makeOutgoings("conn-2", MakePacketInit([]string{"Naruto", "Sasuke"})),
				toAll(MakePacketPlayers([]string{"Naruto", "Sasuke"}), "conn-1", "conn-2"),
				toAll(MakePacketScores(map[string]int{"Naruto": 0, "Sasuke": 0}), "conn-1", "conn-2"),
				makeOutgoings(
					"conn-1", MakePacketRoleUpdate(false),
					"conn-1", MakePacketHint("_ _ _ _ _"),
					"conn-2", MakePacketRoleUpdate(true),
					"conn-2", MakePacketHint("apple"),
				),
				toAll(MakePacketSystem("Sasuke joined the game"), "conn-1", "conn-2"),
			),
		},
		{
			desc:   "sakura joins, brush stays with sasuke",
			action: func() ([]Outgoing, error) { return s.Join("conn-3", roomID, "c3") },
			expected: concat(
				makeOutgoings("conn-3", MakePacketInit([]string{"Naruto", "Sasuke", "Sakura"})),
				toAll(MakePacketPlayers([]string{"Naruto", "Sasuke", "Sakura"}), "conn-1", "conn-2", "conn-3"),
				toAll(MakePacketScores(map[string]int{"Naruto": 0, "Sasuke": 0, "Sakura": 0}), "conn-1", "conn-2", "conn-3"),
				makeOutgoings(
					"conn-1", MakePacketRoleUpdate(false),
					"conn-1", MakePacketHint("_ _ _ _ _"),
					"conn-2", MakePacketRoleUpdate(true),
					"conn-2", MakePacketHint("apple"),
					"conn-3", MakePacketRoleUpdate(false),
					"conn-3", MakePacketHint("_ _ _ _ _"),
				),
				toAll(MakePacketSystem("Sakura joined the game"), "conn-1", "conn-2", "conn-3"),
			),
		},
		{
			desc:     "the drawer saying the word is plain chat, never a guess",
			action:   func() ([]Outgoing, error) { return s.Guess("conn-2", roomID, "apple"), nil },
			expected: toAll(MakePacketChat("Sasuke", "apple"), "conn-1", "conn-2", "conn-3"),
		},
		{
			desc:     "a wrong guess is echoed as chat",
			action:   func() ([]Outgoing, error) { return s.Guess("conn-1", roomID, "banana"), nil },
			expected: toAll(MakePacketChat("Naruto", "banana"), "conn-1", "conn-2", "conn-3"),
		},
		{
			desc:   "sakura guesses right despite case and whitespace",
			action: func() ([]Outgoing, error) { return s.Guess("conn-3", roomID, "  APPLE "), nil },
			expected: concat(
				toAll(MakePacketSystem("Sakura guessed it: apple!"), "conn-1", "conn-2", "conn-3"),
				toAll(MakePacketScores(map[string]int{"Naruto": 0, "Sasuke": 0, "Sakura": 50}), "conn-1", "conn-2", "conn-3"),
				toAll(MakePacketRound(), "conn-1", "conn-2", "conn-3"),
				toAll(MakePacketSystem("New round started!"), "conn-1", "conn-2", "conn-3"),
				toAll(MakePacketTimer(RoundSeconds), "conn-1", "conn-2", "conn-3"),
				makeOutgoings(
					"conn-1", MakePacketRoleUpdate(false),
					"conn-1", MakePacketHint("_ _ _ _ _ _"),
					"conn-2", MakePacketRoleUpdate(false),
					"conn-2", MakePacketHint("_ _ _ _ _ _"),
					"conn-3", MakePacketRoleUpdate(true),
					"conn-3", MakePacketHint("guitar"),
				),
			),
		},
		{
			desc:     "one skip vote of two is not a majority",
			action:   func() ([]Outgoing, error) { return s.VoteSkip("conn-1", roomID), nil },
			expected: toAll(MakePacketSystem("Naruto voted to skip (1/2)"), "conn-1", "conn-2", "conn-3"),
		},
		{
			desc:   "second skip vote passes and the round advances",
			action: func() ([]Outgoing, error) { return s.VoteSkip("conn-2", roomID), nil },
			expected: concat(
				toAll(MakePacketSystem("Vote passed, skipping the round"), "conn-1", "conn-2", "conn-3"),
				toAll(MakePacketRound(), "conn-1", "conn-2", "conn-3"),
				toAll(MakePacketSystem("New round started!"), "conn-1", "conn-2", "conn-3"),
				toAll(MakePacketTimer(RoundSeconds), "conn-1", "conn-2", "conn-3"),
				makeOutgoings(
					"conn-1", MakePacketRoleUpdate(true),
					"conn-1", MakePacketHint("castle"),
					"conn-2", MakePacketRoleUpdate(false),
					"conn-2", MakePacketHint("_ _ _ _ _ _"),
					"conn-3", MakePacketRoleUpdate(false),
					"conn-3", MakePacketHint("_ _ _ _ _ _"),
				),
			),
		},
		{
			desc:   "the drawer leaving hands the brush to the first member",
			action: func() ([]Outgoing, error) { return s.Leave("conn-1", roomID), nil },
			expected: concat(
				toAll(MakePacketPlayers([]string{"Sasuke", "Sakura"}), "conn-2", "conn-3"),
				toAll(MakePacketSystem("Naruto left the game"), "conn-2", "conn-3"),
				toAll(MakePacketRound(), "conn-2", "conn-3"),
				toAll(MakePacketSystem("New round started!"), "conn-2", "conn-3"),
				toAll(MakePacketTimer(RoundSeconds), "conn-2", "conn-3"),
				makeOutgoings(
					"conn-2", MakePacketRoleUpdate(true),
					"conn-2", MakePacketHint("dragon"),
					"conn-3", MakePacketRoleUpdate(false),
					"conn-3", MakePacketHint("_ _ _ _ _ _"),
				),
			),
		},
		{
			desc:   "second to last member leaves",
			action: func() ([]Outgoing, error) { return s.Leave("conn-2", roomID), nil },
			expected: concat(
				toAll(MakePacketPlayers([]string{"Sakura"}), "conn-3"),
				toAll(MakePacketSystem("Sasuke left the game"), "conn-3"),
				toAll(MakePacketRound(), "conn-3"),
				toAll(MakePacketSystem("New round started!"), "conn-3"),
				toAll(MakePacketTimer(RoundSeconds), "conn-3"),
				makeOutgoings(
					"conn-3", MakePacketRoleUpdate(true),
					"conn-3", MakePacketHint("lemon"),
				),
			),
		},
		{
			desc:     "last member leaves, room goes quiet",
			action:   func() ([]Outgoing, error) { return s.Leave("conn-3", roomID), nil },
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			out, err := tc.action()
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assertEqualOutgoings(t, tc.expected, out)
			assertAtMostOneDrawer(t, s, roomID)
		})
	}

	t.Run("empty room survives inside the grace period", func(t *testing.T) {
		*clock = clock.Add(EmptyRoomGrace - time.Second)
		assertEqualOutgoings(t, nil, s.Tick())
		assert.True(t, s.RoomExists(roomID))
	})

	t.Run("empty room is evicted after the grace period", func(t *testing.T) {
		*clock = clock.Add(2 * time.Second)
		assertEqualOutgoings(t, nil, s.Tick())
		assert.False(t, s.RoomExists(roomID))
	})

	t.Run("joining an evicted room fails", func(t *testing.T) {
		_, err := s.Join("conn-4", roomID, "c4")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	picker.AssertExpectations(t)
	redeemer.AssertExpectations(t)
}
