package internal

import (
	"fmt"
	"sync"
)

// PlayerState is the per-connection lifecycle state. DISCONNECTED is
// terminal; the router drops anything a disconnected player still sends.
type PlayerState string

const (
	StateConnected    PlayerState = "CONNECTED"
	StateInLobby      PlayerState = "IN_LOBBY"
	StateInGame       PlayerState = "IN_GAME"
	StateDisconnected PlayerState = "DISCONNECTED"
)

// Conn is the connection channel a player owns: send a message, close the
// transport. Receiving happens in the connection's read loop, not here.
type Conn interface {
	Send(msg Message) error
	Close() error
}

// Player is one connected client. The id is assigned at accept time and
// never changes; the name defaults to Player<id> until the first JOIN
// carries a non-blank one.
type Player struct {
	ID int

	mu    sync.RWMutex
	name  string
	state PlayerState
	conn  Conn
}

func NewPlayer(id int, conn Conn) *Player {
	return &Player{
		ID:    id,
		name:  fmt.Sprintf("Player%d", id),
		state: StateConnected,
		conn:  conn,
	}
}

func (p *Player) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *Player) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

func (p *Player) State() PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Player) SetState(state PlayerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

// Send forwards a message through the player's connection channel.
func (p *Player) Send(msg Message) error {
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("player %d has no connection", p.ID)
	}
	return conn.Send(msg)
}

// Close tears down the owned connection channel.
func (p *Player) Close() error {
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
