package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Messages exchanged with the in-browser wallet kit.
const (
	msgAccount          = "account"
	msgDisconnectResult = "disconnect_result"

	cmdOpenConnectModal = "open_connect_modal"
	cmdOpenAccountModal = "open_account_modal"
	cmdOpenChainModal   = "open_chain_modal"
	cmdDisconnect       = "disconnect"
)

var errBridgeDetached = errors.New("wallet bridge detached")

type bridgeMessage struct {
	Type         string `json:"type"`
	ID           uint64 `json:"id,omitempty"`
	IsConnected  bool   `json:"isConnected,omitempty"`
	IsConnecting bool   `json:"isConnecting,omitempty"`
	Address      string `json:"address,omitempty"`
	Error        string `json:"error,omitempty"`
}

type bridgeListener struct {
	id uint64
	fn func(ConnectorState)
}

// BridgeConnector is a Connector backed by the browser's wallet kit,
// reached over a WebSocket. One browser client is attached at a time; until
// one is, the triggers are nil and the state is disconnected.
type BridgeConnector struct {
	log          *zap.Logger
	writeTimeout time.Duration

	// stateMu orders state changes with their notifications, so listeners
	// see changes in the order they were stored.
	stateMu sync.Mutex

	mu        sync.Mutex
	conn      *websocket.Conn
	state     ConnectorState
	listeners []bridgeListener
	nextID    uint64
	pending   map[uint64]chan string

	writeMu sync.Mutex
}

func NewBridgeConnector(log *zap.Logger) *BridgeConnector {
	if log == nil {
		log = zap.NewNop()
	}
	return &BridgeConnector{
		log:          log,
		writeTimeout: 5 * time.Second,
		pending:      make(map[uint64]chan string),
	}
}

func (b *BridgeConnector) State() ConnectorState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *BridgeConnector) Subscribe(fn func(ConnectorState)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, bridgeListener{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, l := range b.listeners {
			if l.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Attached reports whether a browser client is currently connected.
func (b *BridgeConnector) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *BridgeConnector) Triggers() Triggers {
	if !b.Attached() {
		return Triggers{}
	}
	return Triggers{
		OpenConnectModal: func() { b.command(cmdOpenConnectModal) },
		OpenAccountModal: func() { b.command(cmdOpenAccountModal) },
		OpenChainModal:   func() { b.command(cmdOpenChainModal) },
	}
}

// Disconnect asks the browser to tear down its wallet session and waits for
// the result. With no browser attached there is nothing to tear down.
func (b *BridgeConnector) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	if b.conn == nil {
		b.mu.Unlock()
		return nil
	}
	b.nextID++
	id := b.nextID
	result := make(chan string, 1)
	b.pending[id] = result
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	if err := b.send(bridgeMessage{Type: cmdDisconnect, ID: id}); err != nil {
		return fmt.Errorf("send disconnect: %w", err)
	}

	select {
	case msg := <-result:
		if msg != "" {
			return errors.New(msg)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("await disconnect result: %w", ctx.Err())
	}
}

// Attach serves conn as the active browser bridge until it closes or ctx is
// done. A newer Attach replaces the current connection.
func (b *BridgeConnector) Attach(ctx context.Context, conn *websocket.Conn) {
	b.stateMu.Lock()
	b.mu.Lock()
	prev := b.conn
	b.conn = conn
	b.mu.Unlock()
	if prev != nil {
		// the replaced client's account no longer speaks for the session
		b.publish(ConnectorState{})
	}
	b.stateMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	b.log.Info("wallet bridge attached", zap.String("remote", conn.RemoteAddr().String()))
	b.readLoop(conn)
	b.detach(conn)
}

func (b *BridgeConnector) readLoop(conn *websocket.Conn) {
	for {
		var msg bridgeMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Debug("wallet bridge read ended", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case msgAccount:
			b.setStateFrom(conn, ConnectorState{
				IsConnected:  msg.IsConnected,
				IsConnecting: msg.IsConnecting,
				Address:      msg.Address,
			})
		case msgDisconnectResult:
			b.resolve(msg.ID, msg.Error)
		default:
			b.log.Warn("unknown wallet bridge message", zap.String("type", msg.Type))
		}
	}
}

func (b *BridgeConnector) detach(conn *websocket.Conn) {
	b.stateMu.Lock()
	b.mu.Lock()
	if b.conn != conn {
		// replaced by a newer client; its state stands
		b.mu.Unlock()
		b.stateMu.Unlock()
		return
	}
	b.conn = nil
	for id, ch := range b.pending {
		select {
		case ch <- errBridgeDetached.Error():
		default:
		}
		delete(b.pending, id)
	}
	b.mu.Unlock()
	b.publish(ConnectorState{})
	b.stateMu.Unlock()

	_ = conn.Close()
	b.log.Info("wallet bridge detached")
}

// setStateFrom stores state reported by conn, unless conn has been replaced.
func (b *BridgeConnector) setStateFrom(conn *websocket.Conn, state ConnectorState) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	b.mu.Lock()
	active := b.conn == conn
	b.mu.Unlock()
	if !active {
		return
	}
	b.publish(state)
}

// publish stores state and notifies listeners. Callers hold stateMu.
func (b *BridgeConnector) publish(state ConnectorState) {
	b.mu.Lock()
	b.state = state
	listeners := append([]bridgeListener(nil), b.listeners...)
	b.mu.Unlock()

	for _, l := range listeners {
		l.fn(state)
	}
}

func (b *BridgeConnector) resolve(id uint64, errMsg string) {
	b.mu.Lock()
	ch, ok := b.pending[id]
	b.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- errMsg:
	default:
	}
}

func (b *BridgeConnector) command(name string) {
	if err := b.send(bridgeMessage{Type: name}); err != nil {
		b.log.Warn("wallet bridge command failed", zap.String("command", name), zap.Error(err))
	}
}

func (b *BridgeConnector) send(msg bridgeMessage) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return errBridgeDetached
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
	return conn.WriteJSON(msg)
}
