package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tokenboard/internal/config"
	"tokenboard/internal/domain"

	"go.uber.org/zap"
)

const defaultDisconnectTimeout = 10 * time.Second

// ErrSessionActionFailed marks a connector action that failed and was
// absorbed by the manager.
var ErrSessionActionFailed = errors.New("wallet session action failed")

// Intents are the actions the presentation layer may trigger. Every field
// is always callable.
type Intents struct {
	OpenConnectModal func()
	OpenAccountModal func()
	OpenChainModal   func()
	DisconnectWallet func(ctx context.Context)
}

// Surface is the read-only view handed to the presentation layer.
type Surface struct {
	Session domain.WalletSession
	Intents Intents
}

type subscription struct {
	id uint64
	fn func(domain.WalletSession)
}

// Manager owns the wallet session. The session only changes inside a
// reconciliation cycle, and cycles never overlap: each connector
// notification is applied and published before the next one is read.
type Manager struct {
	cfg  *config.WalletConfig
	conn Connector
	log  *zap.Logger

	cycleMu sync.Mutex

	mu      sync.RWMutex
	session domain.WalletSession
	subs    []subscription
	nextSub uint64

	unsubscribe func()
}

// NewManager starts in the disconnected phase, then reconciles against the
// connector's current state and follows its notifications until Close.
func NewManager(cfg *config.WalletConfig, conn Connector, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		cfg:     cfg,
		conn:    conn,
		log:     log,
		session: domain.DisconnectedSession(),
	}
	m.unsubscribe = conn.Subscribe(func(ConnectorState) { m.reconcile() })
	m.reconcile()
	return m
}

// Close stops following connector notifications.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Config returns the wallet setup the manager was built with.
func (m *Manager) Config() *config.WalletConfig {
	return m.cfg
}

// Session returns the current session snapshot.
func (m *Manager) Session() domain.WalletSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Subscribe registers fn to receive every session change, in order.
// fn runs inside the reconciliation cycle and must not block on the manager.
func (m *Manager) Subscribe(fn func(domain.WalletSession)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, subscription{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// Surface bundles the session snapshot with the intents.
func (m *Manager) Surface() Surface {
	return Surface{Session: m.Session(), Intents: m.Intents()}
}

func (m *Manager) Intents() Intents {
	return Intents{
		OpenConnectModal: m.OpenConnectModal,
		OpenAccountModal: m.OpenAccountModal,
		OpenChainModal:   m.OpenChainModal,
		DisconnectWallet: m.DisconnectWallet,
	}
}

// ConnectWallet asks the connector to start its connect flow. It does not
// change the phase; the connector's own notifications do.
func (m *Manager) ConnectWallet() {
	m.OpenConnectModal()
}

func (m *Manager) OpenConnectModal() {
	m.fire("open-connect-modal", m.conn.Triggers().OpenConnectModal)
}

func (m *Manager) OpenAccountModal() {
	m.fire("open-account-modal", m.conn.Triggers().OpenAccountModal)
}

func (m *Manager) OpenChainModal() {
	m.fire("open-chain-modal", m.conn.Triggers().OpenChainModal)
}

// DisconnectWallet tears down the connector session and then forces the
// local session to disconnected, whether or not the teardown succeeded.
// Teardown errors are logged, never returned.
func (m *Manager) DisconnectWallet(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.disconnectTimeout())
	defer cancel()

	if err := m.teardown(ctx); err != nil {
		m.log.Warn("wallet disconnect failed",
			zap.Error(fmt.Errorf("%w: %w", ErrSessionActionFailed, err)))
	}

	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	m.apply(domain.DisconnectedSession())
}

func (m *Manager) teardown(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("connector panicked: %v", r)
		}
	}()
	return m.conn.Disconnect(ctx)
}

func (m *Manager) fire(name string, trigger func()) {
	if trigger == nil {
		m.log.Debug("wallet trigger not ready", zap.String("intent", name))
		return
	}
	trigger()
}

// reconcile is level-triggered: it reads the connector's current snapshot
// rather than trusting the notification payload, so a late notification
// cannot leave the session behind the connector.
func (m *Manager) reconcile() {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	m.apply(Reconcile(m.conn.State()))
}

// apply stores next and publishes it if it differs from the current
// session. Callers hold cycleMu.
func (m *Manager) apply(next domain.WalletSession) {
	m.mu.Lock()
	if m.session == next {
		m.mu.Unlock()
		return
	}
	prev := m.session
	m.session = next
	subs := append([]subscription(nil), m.subs...)
	m.mu.Unlock()

	m.log.Info("wallet session changed",
		zap.String("from", string(prev.Phase)),
		zap.String("to", string(next.Phase)),
		zap.String("address", next.Address),
	)
	for _, s := range subs {
		s.fn(next)
	}
}

func (m *Manager) disconnectTimeout() time.Duration {
	if m.cfg != nil && m.cfg.DisconnectTimeout > 0 {
		return m.cfg.DisconnectTimeout
	}
	return defaultDisconnectTimeout
}
