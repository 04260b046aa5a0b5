package internal

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WSChannel adapts a gorilla websocket connection to the Conn contract.
// Gorilla allows only one concurrent writer, so every send holds the write
// mutex; broadcasts from the router and timer callbacks may overlap.
type WSChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSChannel(conn *websocket.Conn) *WSChannel {
	return &WSChannel{conn: conn}
}

func (c *WSChannel) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *WSChannel) Close() error {
	return c.conn.Close()
}
