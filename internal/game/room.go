package game

import (
	"sync"

	"github.com/partydraw/partydraw-backend/internal"
)

// RoundStatus is the explicit per-round state. Both the timer callback and
// an early correct guess finish a round through a compare-and-set on this
// field, so only the first to arrive runs the round-end sequence.
type RoundStatus string

const (
	RoundIdle   RoundStatus = "IDLE"
	RoundActive RoundStatus = "ACTIVE"
	RoundEnded  RoundStatus = "ENDED"
)

// Room is the per-room game state machine: ordered roster (insertion order
// is chain order for telephone), ready set, host, round counter, secret
// word, and per-player chain storage. The mode never changes after creation.
type Room struct {
	id   int
	mode internal.GameMode

	mu           sync.RWMutex
	players      []*internal.Player
	ready        map[int]struct{}
	hostID       int
	round        int
	timerSeconds int
	status       RoundStatus
	secret       string
	chains       map[int][]internal.ChainStep
}

func NewRoom(id int, mode internal.GameMode, hostID int) *Room {
	return &Room{
		id:     id,
		mode:   mode,
		ready:  make(map[int]struct{}),
		hostID: hostID,
		round:  1,
		status: RoundIdle,
		chains: make(map[int][]internal.ChainStep),
	}
}

func (r *Room) ID() int                 { return r.id }
func (r *Room) Mode() internal.GameMode { return r.mode }

func (r *Room) HostID() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hostID
}

func (r *Room) IsHost(playerID int) bool {
	return r.HostID() == playerID
}

// AddPlayer appends the player to the roster. Re-adding an existing member
// is a no-op.
func (r *Room) AddPlayer(p *internal.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.players {
		if existing.ID == p.ID {
			return
		}
	}
	r.players = append(r.players, p)
}

// RemovePlayer drops the player from the roster and the ready set and
// reports whether the roster is now empty.
func (r *Room) RemovePlayer(playerID int) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.players {
		if p.ID == playerID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			delete(r.ready, playerID)
			return true, len(r.players) == 0
		}
	}
	return false, len(r.players) == 0
}

// Players returns a snapshot of the roster in turn order. Broadcasts iterate
// the snapshot so a concurrent join or leave never shows up mid-send.
func (r *Room) Players() []*internal.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*internal.Player, len(r.players))
	copy(out, r.players)
	return out
}

func (r *Room) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

func (r *Room) Contains(playerID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// NextAfter returns the roster member immediately following the given
// player, wrapping around at the end. Nil when the player is not a member.
func (r *Room) NextAfter(playerID int) *internal.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, p := range r.players {
		if p.ID == playerID {
			return r.players[(i+1)%len(r.players)]
		}
	}
	return nil
}

// ToggleReady flips the player's membership in the ready set.
func (r *Room) ToggleReady(playerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ready[playerID]; ok {
		delete(r.ready, playerID)
	} else {
		r.ready[playerID] = struct{}{}
	}
}

// AllReady holds iff the roster meets the mode's minimum and every roster
// member is in the ready set.
func (r *Room) AllReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players) >= r.mode.MinPlayers() && len(r.ready) == len(r.players)
}

// ReadyStates maps each roster member's name to its readiness, the payload
// of the PLAYER_STATUS snapshot.
func (r *Room) ReadyStates() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make(map[string]bool, len(r.players))
	for _, p := range r.players {
		_, ok := r.ready[p.ID]
		states[p.Name()] = ok
	}
	return states
}

func (r *Room) Round() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.round
}

func (r *Room) TimerSeconds() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.timerSeconds
}

func (r *Room) Status() RoundStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Joinable reports whether the room is still accepting players, i.e. no
// round is running.
func (r *Room) Joinable() bool {
	return r.Status() != RoundActive
}

// BeginGuessRound arms a draw-and-guess round: round counter back to 1, the
// secret word stored, status ACTIVE.
func (r *Room) BeginGuessRound(secret string, seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.round = 1
	r.timerSeconds = seconds
	r.secret = secret
	r.status = RoundActive
}

// BeginChainRound arms a telephone round: round counter back to 1, all chain
// storage cleared, status ACTIVE.
func (r *Room) BeginChainRound(seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.round = 1
	r.timerSeconds = seconds
	r.secret = ""
	r.chains = make(map[int][]internal.ChainStep)
	r.status = RoundActive
}

// Secret returns the live secret word, empty outside an active
// draw-and-guess round.
func (r *Room) Secret() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.secret
}

// AppendStep records a telephone contribution against the sender's chain,
// ordered by submission time.
func (r *Room) AppendStep(playerID int, step internal.ChainStep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[playerID] = append(r.chains[playerID], step)
}

// FinishGuessRound ends an active draw-and-guess round exactly once,
// returning the secret word. The second caller, timer or guess handler,
// gets ok=false and must not broadcast.
func (r *Room) FinishGuessRound() (secret string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RoundActive || r.secret == "" {
		return "", false
	}
	secret = r.secret
	r.secret = ""
	r.status = RoundEnded
	return secret, true
}

// FinishChainRound ends an active telephone round exactly once, returning a
// copy of every contributing player's chain.
func (r *Room) FinishChainRound() (chains map[int][]internal.ChainStep, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RoundActive {
		return nil, false
	}
	chains = make(map[int][]internal.ChainStep, len(r.chains))
	for id, steps := range r.chains {
		chains[id] = append([]internal.ChainStep(nil), steps...)
	}
	r.status = RoundEnded
	return chains, true
}
