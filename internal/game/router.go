package game

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/partydraw/partydraw-backend/internal"
	"github.com/rs/zerolog"
)

const (
	serverSenderID   = 0
	serverSenderName = "SERVER"
	correctScore     = 1
)

// Router validates an incoming message against the sender's state and
// dispatches it to the matching handler. Results are observable only as
// outgoing messages; errors go back to the sender alone and never touch
// room state.
type Router struct {
	registry  *Registry
	scheduler *Scheduler
	words     *WordBank
	log       zerolog.Logger
}

func NewRouter(registry *Registry, scheduler *Scheduler, words *WordBank, log zerolog.Logger) *Router {
	return &Router{
		registry:  registry,
		scheduler: scheduler,
		words:     words,
		log:       log.With().Str("component", "router").Logger(),
	}
}

// Route is the single entry point for every inbound message.
func (rt *Router) Route(p *internal.Player, msg internal.Message) {
	state := p.State()
	if state == internal.StateDisconnected {
		// Unreachable through a healthy transport, dropped defensively.
		rt.log.Debug().Int("player_id", p.ID).Msg("ignoring message from disconnected player")
		return
	}

	switch msg.Type {
	case internal.TypeJoin:
		if state == internal.StateConnected || state == internal.StateInLobby {
			rt.handleJoin(p, msg)
		} else {
			rt.sendError(p, internal.CodeBadRequest, "cannot join a room from game state")
		}
	case internal.TypeLeave:
		rt.Disconnect(p)
	case internal.TypeReady:
		if state == internal.StateInLobby {
			rt.handleReady(p, msg)
		} else {
			rt.sendError(p, internal.CodeBadRequest, "READY is allowed only in lobby")
		}
	case internal.TypeStart:
		if state == internal.StateInLobby {
			rt.handleStart(p, msg)
		} else {
			rt.sendError(p, internal.CodeBadRequest, "START is allowed only from lobby")
		}
	case internal.TypeChat:
		if state == internal.StateInLobby || state == internal.StateInGame {
			rt.handleChat(p, msg)
		} else {
			rt.sendError(p, internal.CodeBadRequest, "chat is not available in this state")
		}
	case internal.TypeDraw, internal.TypeGuess, internal.TypeTextSubmit:
		if state != internal.StateInGame {
			rt.sendError(p, internal.CodeBadRequest, "game actions are allowed only in game")
			return
		}
		switch msg.Type {
		case internal.TypeDraw:
			rt.handleDraw(p, msg)
		case internal.TypeGuess:
			rt.handleGuess(p, msg)
		case internal.TypeTextSubmit:
			rt.handleTextSubmit(p, msg)
		}
	default:
		rt.sendError(p, internal.CodeBadRequest, fmt.Sprintf("unknown message type: %q", msg.Type))
	}
}

// handleJoin places the player into the room, creating it on first join with
// the mode named in the payload.
func (rt *Router) handleJoin(p *internal.Player, msg internal.Message) {
	if name := strings.TrimSpace(msg.PlayerName); name != "" {
		p.SetName(name)
	}

	room, created, err := rt.registry.GetOrCreate(msg.RoomID, internal.GameMode(msg.Payload), p.ID)
	if err != nil {
		if errors.Is(err, ErrUnknownMode) {
			rt.sendError(p, internal.CodeBadRequest, fmt.Sprintf("unknown game mode: %q", msg.Payload))
			return
		}
		rt.sendError(p, internal.CodeBadRequest, err.Error())
		return
	}

	room.AddPlayer(p)
	p.SetState(internal.StateInLobby)
	rt.log.Info().Int("room_id", room.ID()).Int("player_id", p.ID).Str("name", p.Name()).
		Bool("created", created).Msg("player joined room")
	rt.broadcastPlayerStatus(room)
}

// Disconnect applies LEAVE semantics: terminal state, removal from every
// room the player occupies (defensively all of them), snapshot broadcast to
// each affected room, and reclaim of rooms left empty.
func (rt *Router) Disconnect(p *internal.Player) {
	p.SetState(internal.StateDisconnected)

	for _, room := range rt.registry.Rooms() {
		removed, empty := room.RemovePlayer(p.ID)
		if !removed {
			continue
		}
		rt.log.Info().Int("room_id", room.ID()).Int("player_id", p.ID).Msg("player left room")
		if empty {
			rt.registry.Remove(room.ID())
			rt.scheduler.Cancel(room.ID())
			continue
		}
		rt.broadcastPlayerStatus(room)
	}
}

func (rt *Router) handleReady(p *internal.Player, msg internal.Message) {
	room, ok := rt.registry.Get(msg.RoomID)
	if !ok {
		rt.sendError(p, internal.CodeNotFound, "room not found")
		return
	}
	room.ToggleReady(p.ID)
	rt.broadcastPlayerStatus(room)
}

func (rt *Router) handleStart(p *internal.Player, msg internal.Message) {
	room, ok := rt.registry.Get(msg.RoomID)
	if !ok {
		rt.sendError(p, internal.CodeNotFound, "room not found")
		return
	}
	if !room.IsHost(p.ID) {
		rt.sendError(p, internal.CodeForbidden, "only the host can start the game")
		return
	}
	if !room.AllReady() {
		rt.sendError(p, internal.CodePreconditionFailed, "not enough ready players")
		return
	}

	seconds := internal.DefaultRoundSeconds
	if parsed, err := strconv.Atoi(strings.TrimSpace(msg.Payload)); err == nil && parsed > 0 {
		seconds = parsed
	}

	switch room.Mode() {
	case internal.ModeGuessDrawing:
		room.BeginGuessRound(rt.words.Pick(), seconds)
	case internal.ModeTelephone:
		room.BeginChainRound(seconds)
	}

	players := room.Players()
	start := internal.Message{
		Type:       internal.TypeStart,
		RoomID:     room.ID(),
		PlayerID:   p.ID,
		PlayerName: p.Name(),
		Payload: internal.EncodePayload(internal.StartPayload{
			RoundDuration: seconds,
			TotalPlayers:  len(players),
			Stage:         room.Mode().StageLabel(),
		}),
	}
	for _, member := range players {
		rt.send(member, start)
		member.SetState(internal.StateInGame)
	}

	rt.scheduler.Schedule(room.ID(), time.Duration(seconds)*time.Second, func() {
		rt.EndRound(room.ID())
	})
	rt.log.Info().Int("room_id", room.ID()).Str("mode", string(room.Mode())).
		Int("duration_s", seconds).Int("players", len(players)).Msg("round started")
}

func (rt *Router) handleChat(p *internal.Player, msg internal.Message) {
	room, ok := rt.registry.Get(msg.RoomID)
	if !ok {
		rt.sendError(p, internal.CodeNotFound, "room not found")
		return
	}
	rt.broadcast(room, internal.Message{
		Type:       internal.TypeChat,
		RoomID:     room.ID(),
		PlayerID:   p.ID,
		PlayerName: p.Name(),
		Payload:    msg.Payload,
	})
}

// handleDraw rebroadcasts the drawing blob to the whole room; in telephone
// mode it also appends a drawing step to the sender's chain.
func (rt *Router) handleDraw(p *internal.Player, msg internal.Message) {
	room, ok := rt.registry.Get(msg.RoomID)
	if !ok {
		rt.sendError(p, internal.CodeNotFound, "room not found")
		return
	}

	if room.Mode() == internal.ModeTelephone {
		if msg.Payload == "" {
			rt.sendError(p, internal.CodeBadRequest, "empty drawing payload")
			return
		}
		room.AppendStep(p.ID, internal.DrawStep([]byte(msg.Payload)))
	}

	rt.broadcast(room, internal.Message{
		Type:       internal.TypeDraw,
		RoomID:     room.ID(),
		PlayerID:   p.ID,
		PlayerName: p.Name(),
		Payload:    msg.Payload,
	})
}

// handleGuess compares the trimmed guess to the live secret word
// case-insensitively. A match broadcasts CORRECT and ends the round early; a
// miss is silent.
func (rt *Router) handleGuess(p *internal.Player, msg internal.Message) {
	room, ok := rt.registry.Get(msg.RoomID)
	if !ok {
		rt.sendError(p, internal.CodeNotFound, "room not found")
		return
	}

	guess := strings.TrimSpace(msg.Payload)
	secret := room.Secret()
	if secret == "" || guess == "" {
		rt.sendError(p, internal.CodeBadRequest, "empty guess or secret word is not set")
		return
	}
	if !strings.EqualFold(secret, guess) {
		return
	}

	// Winning the finish CAS decides the race against the timer and against
	// a simultaneous correct guess; only the winner broadcasts.
	rt.scheduler.Cancel(room.ID())
	won, ok := room.FinishGuessRound()
	if !ok {
		return
	}

	rt.broadcast(room, internal.Message{
		Type:       internal.TypeCorrect,
		RoomID:     room.ID(),
		PlayerID:   p.ID,
		PlayerName: p.Name(),
		Payload: internal.EncodePayload(internal.CorrectPayload{
			CorrectPlayer: p.Name(),
			Word:          won,
			Score:         correctScore,
		}),
	})
	rt.broadcastReveal(room, won)
	rt.log.Info().Int("room_id", room.ID()).Int("player_id", p.ID).Msg("round won by guess")
}

// handleTextSubmit appends a text step to the sender's chain and forwards
// the content to the next player in roster order, wrapping around.
func (rt *Router) handleTextSubmit(p *internal.Player, msg internal.Message) {
	room, ok := rt.registry.Get(msg.RoomID)
	if !ok {
		rt.sendError(p, internal.CodeNotFound, "room not found")
		return
	}
	if room.Mode() != internal.ModeTelephone {
		rt.sendError(p, internal.CodeBadRequest, "invalid mode for TEXT_SUBMIT")
		return
	}
	if strings.TrimSpace(msg.Payload) == "" {
		rt.sendError(p, internal.CodeBadRequest, "text payload is empty")
		return
	}

	next := room.NextAfter(p.ID)
	if next == nil {
		// Sender raced a removal from the roster; nothing to forward.
		return
	}
	room.AppendStep(p.ID, internal.TextStep(msg.Payload))

	rt.send(next, internal.Message{
		Type:       internal.TypeRoundUpdate,
		RoomID:     room.ID(),
		PlayerID:   p.ID,
		PlayerName: p.Name(),
		Payload: internal.EncodePayload(internal.ForwardPayload{
			Content:     msg.Payload,
			ContentType: string(internal.StepText),
			RoundNumber: room.Round(),
		}),
	})
}

// EndRound runs the round-end sequence for the room, by timer expiry or by
// an early correct guess. Idempotent: the room's round-status guard lets
// only the first invocation broadcast.
func (rt *Router) EndRound(roomID int) {
	room, ok := rt.registry.Get(roomID)
	if !ok {
		return
	}

	switch room.Mode() {
	case internal.ModeGuessDrawing:
		secret, ok := room.FinishGuessRound()
		if !ok {
			return
		}
		rt.broadcastReveal(room, secret)
	case internal.ModeTelephone:
		chains, ok := room.FinishChainRound()
		if !ok {
			return
		}
		rt.broadcast(room, internal.Message{
			Type:       internal.TypeFinalChain,
			RoomID:     room.ID(),
			PlayerID:   serverSenderID,
			PlayerName: serverSenderName,
			Payload:    internal.EncodePayload(buildFinalChains(room, chains)),
		})
	}
	rt.log.Info().Int("room_id", roomID).Msg("round ended")
}

func (rt *Router) broadcastReveal(room *Room, secret string) {
	rt.broadcast(room, internal.Message{
		Type:       internal.TypeRoundUpdate,
		RoomID:     room.ID(),
		PlayerID:   serverSenderID,
		PlayerName: serverSenderName,
		Payload:    internal.EncodePayload(internal.RevealPayload{Word: secret}),
	})
}

// buildFinalChains assembles one complete chain per contributing player, in
// roster order, with drawings base64-encoded for the text wire.
func buildFinalChains(room *Room, chains map[int][]internal.ChainStep) internal.FinalChainPayload {
	payload := internal.FinalChainPayload{ContentType: string(internal.TypeFinalChain)}
	for _, p := range room.Players() {
		steps, ok := chains[p.ID]
		if !ok || len(steps) == 0 {
			continue
		}
		chain := internal.PlayerChain{PlayerID: p.ID, PlayerName: p.Name()}
		for _, step := range steps {
			link := internal.ChainLink{Type: string(step.Type)}
			if step.Type == internal.StepText {
				link.Value = step.Text
			} else {
				link.Value = base64.StdEncoding.EncodeToString(step.Drawing)
			}
			chain.Chain = append(chain.Chain, link)
		}
		payload.Chains = append(payload.Chains, chain)
	}
	return payload
}

// broadcastPlayerStatus sends the roster/readiness snapshot to every member.
func (rt *Router) broadcastPlayerStatus(room *Room) {
	rt.broadcast(room, internal.Message{
		Type:       internal.TypePlayerStatus,
		RoomID:     room.ID(),
		PlayerID:   serverSenderID,
		PlayerName: serverSenderName,
		Payload:    internal.EncodePayload(room.ReadyStates()),
	})
}

// broadcast snapshots the roster first, then sends outside any room lock.
func (rt *Router) broadcast(room *Room, msg internal.Message) {
	for _, member := range room.Players() {
		rt.send(member, msg)
	}
}

func (rt *Router) send(p *internal.Player, msg internal.Message) {
	if err := p.Send(msg); err != nil {
		rt.log.Warn().Err(err).Int("player_id", p.ID).Str("type", string(msg.Type)).
			Msg("send failed")
	}
}

// SendDecodeError reports a malformed inbound frame back to its sender.
func (rt *Router) SendDecodeError(p *internal.Player) {
	rt.sendError(p, internal.CodeBadRequest, "malformed message")
}

func (rt *Router) sendError(p *internal.Player, code, text string) {
	err := internal.Message{
		Type:       internal.TypeError,
		RoomID:     0,
		PlayerID:   serverSenderID,
		PlayerName: serverSenderName,
		Payload:    internal.EncodePayload(internal.ErrorPayload{Code: code, Message: text}),
	}
	// Best effort: the peer may already be gone.
	_ = p.Send(err)
}
