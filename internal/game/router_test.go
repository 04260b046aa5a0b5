package game

import (
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"

	"github.com/partydraw/partydraw-backend/internal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records everything sent through a player's channel.
type fakeConn struct {
	mu   sync.Mutex
	msgs []internal.Message
}

func (c *fakeConn) Send(msg internal.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) byType(t internal.MessageType) []internal.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []internal.Message
	for _, m := range c.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) count(t internal.MessageType) int {
	return len(c.byType(t))
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}

func (c *fakeConn) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func errorCode(t *testing.T, msg internal.Message) string {
	t.Helper()
	var payload internal.ErrorPayload
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
	return payload.Code
}

func newTestRouter(words ...string) (*Router, *Registry, *Scheduler) {
	registry := NewRegistry(zerolog.Nop())
	scheduler := NewScheduler(zerolog.Nop())
	return NewRouter(registry, scheduler, NewWordBank(words), zerolog.Nop()), registry, scheduler
}

func newFakePlayer(id int) (*internal.Player, *fakeConn) {
	conn := &fakeConn{}
	return internal.NewPlayer(id, conn), conn
}

func join(rt *Router, p *internal.Player, roomID int, mode internal.GameMode, name string) {
	rt.Route(p, internal.Message{
		Type:       internal.TypeJoin,
		RoomID:     roomID,
		PlayerName: name,
		Payload:    string(mode),
	})
}

// readyRoom joins and readies n players in a fresh room.
func readyRoom(rt *Router, roomID int, mode internal.GameMode, names ...string) ([]*internal.Player, []*fakeConn) {
	players := make([]*internal.Player, len(names))
	conns := make([]*fakeConn, len(names))
	for i, name := range names {
		players[i], conns[i] = newFakePlayer(i + 1)
		join(rt, players[i], roomID, mode, name)
		rt.Route(players[i], internal.Message{Type: internal.TypeReady, RoomID: roomID})
	}
	return players, conns
}

func TestJoinCreatesRoomAndBroadcastsStatus(t *testing.T) {
	rt, registry, _ := newTestRouter()
	p, conn := newFakePlayer(1)

	join(rt, p, 7, internal.ModeGuessDrawing, "Alice")

	room, ok := registry.Get(7)
	require.True(t, ok)
	assert.True(t, room.IsHost(1), "creator becomes host")
	assert.Equal(t, internal.StateInLobby, p.State())
	assert.Equal(t, "Alice", p.Name())

	statuses := conn.byType(internal.TypePlayerStatus)
	require.Len(t, statuses, 1)
	var states map[string]bool
	require.NoError(t, json.Unmarshal([]byte(statuses[0].Payload), &states))
	assert.Equal(t, map[string]bool{"Alice": false}, states)
}

func TestJoinBlankNameKeepsDefault(t *testing.T) {
	rt, _, _ := newTestRouter()
	p, _ := newFakePlayer(5)

	join(rt, p, 7, internal.ModeGuessDrawing, "   ")
	assert.Equal(t, "Player5", p.Name())
}

func TestJoinUnknownModeRejected(t *testing.T) {
	rt, registry, _ := newTestRouter()
	p, conn := newFakePlayer(1)

	rt.Route(p, internal.Message{Type: internal.TypeJoin, RoomID: 7, PlayerName: "Alice", Payload: "POKER"})

	errs := conn.byType(internal.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, internal.CodeBadRequest, errorCode(t, errs[0]))
	_, ok := registry.Get(7)
	assert.False(t, ok)
	assert.Equal(t, internal.StateConnected, p.State())
}

func TestChatBeforeJoinRejected(t *testing.T) {
	rt, _, _ := newTestRouter()
	p, conn := newFakePlayer(1)

	rt.Route(p, internal.Message{Type: internal.TypeChat, RoomID: 7, Payload: "hi"})

	errs := conn.byType(internal.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, internal.CodeBadRequest, errorCode(t, errs[0]))
	assert.Equal(t, 1, conn.total(), "no broadcast may happen")
}

func TestChatBroadcastsToWholeRoomIncludingSender(t *testing.T) {
	rt, _, _ := newTestRouter()
	players, conns := readyRoom(rt, 7, internal.ModeGuessDrawing, "Alice", "Bob")

	rt.Route(players[1], internal.Message{Type: internal.TypeChat, RoomID: 7, Payload: "hello"})

	for _, conn := range conns {
		chats := conn.byType(internal.TypeChat)
		require.Len(t, chats, 1)
		assert.Equal(t, "hello", chats[0].Payload)
		assert.Equal(t, 2, chats[0].PlayerID)
		assert.Equal(t, "Bob", chats[0].PlayerName)
	}
}

func TestMessagesFromDisconnectedPlayerDropped(t *testing.T) {
	rt, _, _ := newTestRouter()
	p, conn := newFakePlayer(1)
	p.SetState(internal.StateDisconnected)

	rt.Route(p, internal.Message{Type: internal.TypeChat, RoomID: 7, Payload: "hi"})
	assert.Zero(t, conn.total())
}

func TestUnknownMessageTypeRejected(t *testing.T) {
	rt, _, _ := newTestRouter()
	p, conn := newFakePlayer(1)

	rt.Route(p, internal.Message{Type: "BOGUS", RoomID: 7})

	errs := conn.byType(internal.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, internal.CodeBadRequest, errorCode(t, errs[0]))
	assert.Contains(t, errs[0].Payload, "BOGUS")
}

func TestStartByNonHostForbiddenAndMutatesNothing(t *testing.T) {
	rt, registry, scheduler := newTestRouter("cat")
	players, conns := readyRoom(rt, 7, internal.ModeGuessDrawing, "Alice", "Bob")
	room, _ := registry.Get(7)

	rt.Route(players[1], internal.Message{Type: internal.TypeStart, RoomID: 7, Payload: "30"})

	errs := conns[1].byType(internal.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, internal.CodeForbidden, errorCode(t, errs[0]))

	assert.Equal(t, 1, room.Round())
	assert.Empty(t, room.Secret())
	assert.Equal(t, RoundIdle, room.Status())
	assert.Equal(t, internal.StateInLobby, players[0].State())
	assert.Equal(t, internal.StateInLobby, players[1].State())
	assert.False(t, scheduler.Pending(7))
}

func TestStartWithoutFullReadinessPreconditionFails(t *testing.T) {
	rt, _, scheduler := newTestRouter()
	// Telephone minimum is 4; three ready players must not be enough.
	players, conns := readyRoom(rt, 2, internal.ModeTelephone, "A", "B", "C")

	rt.Route(players[0], internal.Message{Type: internal.TypeStart, RoomID: 2, Payload: "30"})

	errs := conns[0].byType(internal.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, internal.CodePreconditionFailed, errorCode(t, errs[0]))
	assert.False(t, scheduler.Pending(2), "a failed start must not arm a timer")
}

func TestStartGuessDrawingRound(t *testing.T) {
	rt, registry, scheduler := newTestRouter("cat")
	players, conns := readyRoom(rt, 1, internal.ModeGuessDrawing, "Alice", "Bob")
	room, _ := registry.Get(1)

	rt.Route(players[0], internal.Message{Type: internal.TypeStart, RoomID: 1, Payload: "30"})

	for _, conn := range conns {
		starts := conn.byType(internal.TypeStart)
		require.Len(t, starts, 1)
		var payload internal.StartPayload
		require.NoError(t, json.Unmarshal([]byte(starts[0].Payload), &payload))
		assert.Equal(t, 30, payload.RoundDuration)
		assert.Equal(t, 2, payload.TotalPlayers)
		assert.Equal(t, "DRAW", payload.Stage)
	}
	assert.Equal(t, internal.StateInGame, players[0].State())
	assert.Equal(t, internal.StateInGame, players[1].State())
	assert.Equal(t, "cat", room.Secret())
	assert.Equal(t, 30, room.TimerSeconds())
	assert.True(t, scheduler.Pending(1))
}

func TestStartDurationDefaultsOnBadPayload(t *testing.T) {
	rt, registry, _ := newTestRouter("cat")
	players, conns := readyRoom(rt, 1, internal.ModeGuessDrawing, "Alice", "Bob")

	rt.Route(players[0], internal.Message{Type: internal.TypeStart, RoomID: 1, Payload: "-5"})

	starts := conns[0].byType(internal.TypeStart)
	require.Len(t, starts, 1)
	var payload internal.StartPayload
	require.NoError(t, json.Unmarshal([]byte(starts[0].Payload), &payload))
	assert.Equal(t, internal.DefaultRoundSeconds, payload.RoundDuration)

	room, _ := registry.Get(1)
	assert.Equal(t, internal.DefaultRoundSeconds, room.TimerSeconds())
}

func TestCorrectGuessEndsRoundExactlyOnce(t *testing.T) {
	rt, _, scheduler := newTestRouter("cat")
	players, conns := readyRoom(rt, 1, internal.ModeGuessDrawing, "Alice", "Bob")
	rt.Route(players[0], internal.Message{Type: internal.TypeStart, RoomID: 1, Payload: "30"})

	rt.Route(players[1], internal.Message{Type: internal.TypeGuess, RoomID: 1, Payload: "  CAT "})

	for _, conn := range conns {
		corrects := conn.byType(internal.TypeCorrect)
		require.Len(t, corrects, 1)
		var correct internal.CorrectPayload
		require.NoError(t, json.Unmarshal([]byte(corrects[0].Payload), &correct))
		assert.Equal(t, "Bob", correct.CorrectPlayer)
		assert.Equal(t, "cat", correct.Word)
		assert.Equal(t, 1, correct.Score)

		reveals := conn.byType(internal.TypeRoundUpdate)
		require.Len(t, reveals, 1)
		var reveal internal.RevealPayload
		require.NoError(t, json.Unmarshal([]byte(reveals[0].Payload), &reveal))
		assert.Equal(t, "cat", reveal.Word)
	}
	assert.False(t, scheduler.Pending(1), "early end cancels the pending timer")

	// A second identical guess after round end must not broadcast again.
	rt.Route(players[1], internal.Message{Type: internal.TypeGuess, RoomID: 1, Payload: "cat"})
	for _, conn := range conns {
		assert.Equal(t, 1, conn.count(internal.TypeCorrect))
		assert.Equal(t, 1, conn.count(internal.TypeRoundUpdate))
	}
}

func TestWrongGuessIsSilent(t *testing.T) {
	rt, _, _ := newTestRouter("cat")
	players, conns := readyRoom(rt, 1, internal.ModeGuessDrawing, "Alice", "Bob")
	rt.Route(players[0], internal.Message{Type: internal.TypeStart, RoomID: 1, Payload: "30"})

	before := conns[0].total()
	rt.Route(players[1], internal.Message{Type: internal.TypeGuess, RoomID: 1, Payload: "dog"})

	assert.Equal(t, before, conns[0].total())
	assert.Zero(t, conns[1].count(internal.TypeError))
}

func TestTimerRoundEndRevealsWordOnce(t *testing.T) {
	rt, _, _ := newTestRouter("cat")
	players, conns := readyRoom(rt, 1, internal.ModeGuessDrawing, "Alice", "Bob")
	rt.Route(players[0], internal.Message{Type: internal.TypeStart, RoomID: 1, Payload: "30"})

	rt.EndRound(1)
	rt.EndRound(1) // stale timer firing after an early end must be a no-op

	for _, conn := range conns {
		require.Equal(t, 1, conn.count(internal.TypeRoundUpdate))
		var reveal internal.RevealPayload
		require.NoError(t, json.Unmarshal([]byte(conn.byType(internal.TypeRoundUpdate)[0].Payload), &reveal))
		assert.Equal(t, "cat", reveal.Word)
	}
}

func TestTelephoneForwardingToNextNeighbor(t *testing.T) {
	rt, _, _ := newTestRouter()
	players, conns := readyRoom(rt, 3, internal.ModeTelephone, "A", "B", "C", "D")
	rt.Route(players[0], internal.Message{Type: internal.TypeStart, RoomID: 3, Payload: "60"})
	for _, conn := range conns {
		conn.reset()
	}

	// C submits: only D receives the forward.
	rt.Route(players[2], internal.Message{Type: internal.TypeTextSubmit, RoomID: 3, Payload: "sunset"})
	for i, conn := range conns {
		if i == 3 {
			updates := conn.byType(internal.TypeRoundUpdate)
			require.Len(t, updates, 1)
			var fwd internal.ForwardPayload
			require.NoError(t, json.Unmarshal([]byte(updates[0].Payload), &fwd))
			assert.Equal(t, "sunset", fwd.Content)
			assert.Equal(t, "TEXT", fwd.ContentType)
			assert.Equal(t, 1, fwd.RoundNumber)
			assert.Equal(t, 3, updates[0].PlayerID)
		} else {
			assert.Zero(t, conn.total(), "player %d must not receive the forward", i+1)
		}
	}

	// D submits: wraps around to A.
	rt.Route(players[3], internal.Message{Type: internal.TypeTextSubmit, RoomID: 3, Payload: "a beach"})
	assert.Equal(t, 1, conns[0].count(internal.TypeRoundUpdate))
	assert.Zero(t, conns[1].count(internal.TypeRoundUpdate))
}

func TestTextSubmitGuards(t *testing.T) {
	rt, _, _ := newTestRouter("cat")
	players, conns := readyRoom(rt, 1, internal.ModeGuessDrawing, "Alice", "Bob")
	rt.Route(players[0], internal.Message{Type: internal.TypeStart, RoomID: 1, Payload: "30"})

	// Wrong mode.
	rt.Route(players[0], internal.Message{Type: internal.TypeTextSubmit, RoomID: 1, Payload: "hi"})
	errs := conns[0].byType(internal.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, internal.CodeBadRequest, errorCode(t, errs[0]))

	// Absent room.
	rt.Route(players[0], internal.Message{Type: internal.TypeTextSubmit, RoomID: 99, Payload: "hi"})
	errs = conns[0].byType(internal.TypeError)
	require.Len(t, errs, 2)
	assert.Equal(t, internal.CodeNotFound, errorCode(t, errs[1]))
}

func TestTelephoneDrawAppendsChainAndBroadcasts(t *testing.T) {
	rt, _, _ := newTestRouter()
	players, conns := readyRoom(rt, 3, internal.ModeTelephone, "A", "B", "C", "D")
	rt.Route(players[0], internal.Message{Type: internal.TypeStart, RoomID: 3, Payload: "60"})
	for _, conn := range conns {
		conn.reset()
	}

	// Empty payload is rejected in telephone mode.
	rt.Route(players[1], internal.Message{Type: internal.TypeDraw, RoomID: 3, Payload: ""})
	errs := conns[1].byType(internal.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, internal.CodeBadRequest, errorCode(t, errs[0]))

	rt.Route(players[1], internal.Message{Type: internal.TypeDraw, RoomID: 3, Payload: "blob"})
	for _, conn := range conns {
		draws := conn.byType(internal.TypeDraw)
		require.Len(t, draws, 1)
		assert.Equal(t, "blob", draws[0].Payload)
		assert.Equal(t, 2, draws[0].PlayerID)
	}
}

func TestTelephoneFinalChainsBroadcastPerPlayer(t *testing.T) {
	rt, _, _ := newTestRouter()
	players, conns := readyRoom(rt, 3, internal.ModeTelephone, "A", "B", "C", "D")
	rt.Route(players[0], internal.Message{Type: internal.TypeStart, RoomID: 3, Payload: "60"})

	rt.Route(players[2], internal.Message{Type: internal.TypeTextSubmit, RoomID: 3, Payload: "sunset"})
	rt.Route(players[3], internal.Message{Type: internal.TypeDraw, RoomID: 3, Payload: "doodle"})

	rt.EndRound(3)
	rt.EndRound(3) // idempotent

	for _, conn := range conns {
		finals := conn.byType(internal.TypeFinalChain)
		require.Len(t, finals, 1)

		var payload internal.FinalChainPayload
		require.NoError(t, json.Unmarshal([]byte(finals[0].Payload), &payload))
		assert.Equal(t, "FINAL_CHAIN", payload.ContentType)
		require.Len(t, payload.Chains, 2, "one chain per contributing player")

		// Chains come in roster order: C before D.
		assert.Equal(t, "C", payload.Chains[0].PlayerName)
		require.Len(t, payload.Chains[0].Chain, 1)
		assert.Equal(t, internal.ChainLink{Type: "TEXT", Value: "sunset"}, payload.Chains[0].Chain[0])

		assert.Equal(t, "D", payload.Chains[1].PlayerName)
		require.Len(t, payload.Chains[1].Chain, 1)
		assert.Equal(t, "DRAW", payload.Chains[1].Chain[0].Type)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("doodle")), payload.Chains[1].Chain[0].Value)
	}
}

func TestLeaveEmptiesAndReclaimsRoom(t *testing.T) {
	rt, registry, _ := newTestRouter()
	players, conns := readyRoom(rt, 7, internal.ModeGuessDrawing, "Alice", "Bob")

	rt.Route(players[0], internal.Message{Type: internal.TypeLeave, RoomID: 7})
	assert.Equal(t, internal.StateDisconnected, players[0].State())

	// The remaining member sees an updated snapshot without the leaver.
	statuses := conns[1].byType(internal.TypePlayerStatus)
	require.NotEmpty(t, statuses)
	var states map[string]bool
	require.NoError(t, json.Unmarshal([]byte(statuses[len(statuses)-1].Payload), &states))
	assert.Equal(t, map[string]bool{"Bob": true}, states)

	rt.Route(players[1], internal.Message{Type: internal.TypeLeave, RoomID: 7})
	_, ok := registry.Get(7)
	assert.False(t, ok, "an emptied room is reclaimed")
}

func TestGameActionsRequireInGameState(t *testing.T) {
	rt, _, _ := newTestRouter("cat")
	players, conns := readyRoom(rt, 1, internal.ModeGuessDrawing, "Alice", "Bob")

	// Still in lobby: all three game actions are rejected.
	for _, typ := range []internal.MessageType{internal.TypeDraw, internal.TypeGuess, internal.TypeTextSubmit} {
		rt.Route(players[1], internal.Message{Type: typ, RoomID: 1, Payload: "x"})
	}
	errs := conns[1].byType(internal.TypeError)
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, internal.CodeBadRequest, errorCode(t, e))
	}
}
