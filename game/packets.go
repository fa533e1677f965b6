package game

import "encoding/json"

// Packet is the outbound JSON envelope written to a connection. Type
// names match the events the canvas client listens for.
type Packet struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Outgoing pairs a packet with the connection it must be written to.
// Store operations return these instead of touching any transport.
type Outgoing struct {
	To     string
	Packet Packet
}

type RoleData struct {
	IsDrawer bool `json:"isDrawer"`
}

type ChatData struct {
	User string `json:"user"`
	Text string `json:"text"`
}

type InitData struct {
	Players []string `json:"players"`
}

type TimerData struct {
	Seconds int `json:"seconds"`
}

func MakePacketRoleUpdate(isDrawer bool) Packet {
	return Packet{Type: "roleUpdate", Data: RoleData{IsDrawer: isDrawer}}
}

// MakePacketHint carries the masked word, or the full word when sent
// to the drawer.
func MakePacketHint(word string) Packet {
	return Packet{Type: "hint", Data: word}
}

func MakePacketInit(players []string) Packet {
	return Packet{Type: "init", Data: InitData{Players: players}}
}

func MakePacketPlayers(players []string) Packet {
	return Packet{Type: "players", Data: players}
}

func MakePacketScores(scores map[string]int) Packet {
	return Packet{Type: "scores", Data: scores}
}

func MakePacketChat(user, text string) Packet {
	return Packet{Type: "chat", Data: ChatData{User: user, Text: text}}
}

func MakePacketSystem(text string) Packet {
	return Packet{Type: "system", Data: text}
}

func MakePacketTimer(seconds int) Packet {
	return Packet{Type: "timer", Data: TimerData{Seconds: seconds}}
}

func MakePacketRound() Packet {
	return Packet{Type: "round"}
}

func MakePacketJoinError(reason string) Packet {
	return Packet{Type: "joinError", Data: reason}
}

// MakePacketStroke relays a drawing event verbatim. kind is one of
// draw, startPath or endPath; the payload is never interpreted.
func MakePacketStroke(kind string, data json.RawMessage) Packet {
	return Packet{Type: kind, Data: data}
}
