package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tokenboard/internal/config"
	"tokenboard/internal/domain"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testWalletConfig = &config.WalletConfig{AppName: "test", DisconnectTimeout: time.Second}

func newTestManager(conn Connector) (*Manager, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewManager(testWalletConfig, conn, zap.New(core)), logs
}

func TestManagerStartsDisconnected(t *testing.T) {
	m, _ := newTestManager(&fakeConnector{})
	if s := m.Session(); s.Phase != domain.PhaseDisconnected || s.Address != "" {
		t.Fatalf("expected disconnected session, got %+v", s)
	}
}

func TestManagerAdoptsInitialConnectorState(t *testing.T) {
	m, _ := newTestManager(&fakeConnector{state: ConnectorState{IsConnected: true, Address: "0x1"}})
	if s := m.Session(); !s.Connected() || s.Address != "0x1" {
		t.Fatalf("expected connected session, got %+v", s)
	}
}

func TestManagerPublishesConnectWithinOneCycle(t *testing.T) {
	conn := &fakeConnector{}
	m, _ := newTestManager(conn)

	var seen []domain.WalletSession
	m.Subscribe(func(s domain.WalletSession) { seen = append(seen, s) })

	conn.emit(ConnectorState{IsConnected: false})
	conn.emit(ConnectorState{IsConnected: true, Address: "0xABC"})

	if len(seen) != 1 {
		t.Fatalf("expected exactly one published change, got %+v", seen)
	}
	if seen[0].Phase != domain.PhaseConnected || seen[0].Address != "0xABC" {
		t.Fatalf("unexpected session: %+v", seen[0])
	}
	if m.Session() != seen[0] {
		t.Fatalf("snapshot disagrees with published session: %+v", m.Session())
	}
}

func TestManagerFullLifecycle(t *testing.T) {
	conn := &fakeConnector{}
	m, _ := newTestManager(conn)

	var phases []domain.SessionPhase
	m.Subscribe(func(s domain.WalletSession) { phases = append(phases, s.Phase) })

	conn.emit(ConnectorState{IsConnecting: true})
	conn.emit(ConnectorState{IsConnected: true, Address: "0xA"})
	conn.emit(ConnectorState{IsConnected: true, Address: "0xB"})
	conn.emit(ConnectorState{})

	want := []domain.SessionPhase{
		domain.PhaseConnecting, domain.PhaseConnected, domain.PhaseConnected, domain.PhaseDisconnected,
	}
	if len(phases) != len(want) {
		t.Fatalf("expected %v, got %v", want, phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, phases)
		}
	}
	if m.Session().Address != "" {
		t.Fatal("address must be cleared once disconnected")
	}
}

func TestManagerReconcilesAgainstCurrentState(t *testing.T) {
	conn := &fakeConnector{}
	m, _ := newTestManager(conn)

	// a late notification carrying an older value must not win over the
	// connector's current snapshot
	conn.mu.Lock()
	conn.state = ConnectorState{IsConnected: true, Address: "0xNEW"}
	conn.mu.Unlock()
	conn.notify(ConnectorState{IsConnected: true, Address: "0xOLD"})

	if s := m.Session(); s.Address != "0xNEW" {
		t.Fatalf("expected session to follow current state 0xNEW, got %+v", s)
	}
}

func TestConnectWalletDoesNotChangePhase(t *testing.T) {
	opened := 0
	conn := &fakeConnector{triggers: Triggers{OpenConnectModal: func() { opened++ }}}
	m, _ := newTestManager(conn)

	m.ConnectWallet()
	if opened != 1 {
		t.Fatalf("expected connect modal to open once, got %d", opened)
	}
	if m.Session().Phase != domain.PhaseDisconnected {
		t.Fatalf("connect intent must not change phase, got %+v", m.Session())
	}
}

func TestIntentsBeforeTriggersInitialized(t *testing.T) {
	m, _ := newTestManager(&fakeConnector{})

	intents := m.Intents()
	if intents.OpenConnectModal == nil || intents.OpenAccountModal == nil ||
		intents.OpenChainModal == nil || intents.DisconnectWallet == nil {
		t.Fatal("every intent must be callable")
	}
	intents.OpenConnectModal()
	intents.OpenAccountModal()
	intents.OpenChainModal()
	m.ConnectWallet()
}

func TestIntentsPassThrough(t *testing.T) {
	var calls []string
	conn := &fakeConnector{triggers: Triggers{
		OpenConnectModal: func() { calls = append(calls, "connect") },
		OpenAccountModal: func() { calls = append(calls, "account") },
		OpenChainModal:   func() { calls = append(calls, "chain") },
	}}
	m, _ := newTestManager(conn)

	surface := m.Surface()
	surface.Intents.OpenAccountModal()
	surface.Intents.OpenChainModal()
	surface.Intents.OpenConnectModal()

	if len(calls) != 3 || calls[0] != "account" || calls[1] != "chain" || calls[2] != "connect" {
		t.Fatalf("unexpected calls: %v", calls)
	}
}

func TestDisconnectWalletSuccess(t *testing.T) {
	conn := &fakeConnector{state: ConnectorState{IsConnected: true, Address: "0xABC"}}
	m, logs := newTestManager(conn)

	m.DisconnectWallet(context.Background())

	if conn.disconnectCalls != 1 {
		t.Fatalf("expected one teardown call, got %d", conn.disconnectCalls)
	}
	if m.Session().Phase != domain.PhaseDisconnected {
		t.Fatalf("expected disconnected, got %+v", m.Session())
	}
	if logs.FilterMessage("wallet disconnect failed").Len() != 0 {
		t.Fatal("no failure should be logged")
	}
}

func TestDisconnectWalletFailureStillDisconnects(t *testing.T) {
	conn := &fakeConnector{
		state:         ConnectorState{IsConnected: true, Address: "0xABC"},
		disconnectErr: errors.New("user rejected"),
	}
	m, logs := newTestManager(conn)

	var seen []domain.WalletSession
	m.Subscribe(func(s domain.WalletSession) { seen = append(seen, s) })

	m.DisconnectWallet(context.Background())

	if m.Session().Phase != domain.PhaseDisconnected {
		t.Fatalf("expected disconnected despite failure, got %+v", m.Session())
	}
	if len(seen) != 1 || seen[0].Phase != domain.PhaseDisconnected {
		t.Fatalf("expected disconnected to be published, got %+v", seen)
	}
	entries := logs.FilterMessage("wallet disconnect failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one logged diagnostic, got %d", len(entries))
	}
	if err, ok := entries[0].ContextMap()["error"].(string); !ok || err == "" {
		t.Fatalf("expected error field, got %+v", entries[0].ContextMap())
	}
}

func TestDisconnectWalletConnectorPanics(t *testing.T) {
	conn := &fakeConnector{
		state:           ConnectorState{IsConnected: true, Address: "0xABC"},
		disconnectPanic: true,
	}
	m, logs := newTestManager(conn)

	m.DisconnectWallet(context.Background())

	if m.Session().Phase != domain.PhaseDisconnected {
		t.Fatalf("expected disconnected, got %+v", m.Session())
	}
	if logs.FilterMessage("wallet disconnect failed").Len() != 1 {
		t.Fatal("expected logged diagnostic")
	}
}

func TestDisconnectWalletAppliesTimeout(t *testing.T) {
	conn := &fakeConnector{
		state: ConnectorState{IsConnected: true, Address: "0xABC"},
		block: true,
	}
	m := NewManager(&config.WalletConfig{DisconnectTimeout: 20 * time.Millisecond}, conn, nil)

	done := make(chan struct{})
	go func() {
		m.DisconnectWallet(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disconnect did not honor timeout")
	}
	if m.Session().Phase != domain.PhaseDisconnected {
		t.Fatalf("expected disconnected, got %+v", m.Session())
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	conn := &fakeConnector{}
	m, _ := newTestManager(conn)

	count := 0
	unsubscribe := m.Subscribe(func(domain.WalletSession) { count++ })
	conn.emit(ConnectorState{IsConnecting: true})
	unsubscribe()
	conn.emit(ConnectorState{IsConnected: true, Address: "0x1"})

	if count != 1 {
		t.Fatalf("expected 1 notification, got %d", count)
	}
}

func TestCloseStopsReconciling(t *testing.T) {
	conn := &fakeConnector{}
	m, _ := newTestManager(conn)
	m.Close()

	conn.emit(ConnectorState{IsConnected: true, Address: "0x1"})
	if m.Session().Connected() {
		t.Fatal("closed manager should ignore connector notifications")
	}
}

func TestConcurrentNotificationsAreSerialized(t *testing.T) {
	conn := &fakeConnector{}
	m, _ := newTestManager(conn)

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	m.Subscribe(func(domain.WalletSession) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				conn.emit(ConnectorState{IsConnected: true, Address: "0x1"})
			} else {
				conn.emit(ConnectorState{})
			}
		}(i)
	}
	wg.Wait()

	if maxInFlight > 1 {
		t.Fatalf("reconciliation cycles overlapped: max in flight %d", maxInFlight)
	}
}

type fakeConnector struct {
	mu        sync.Mutex
	state     ConnectorState
	listeners map[int]func(ConnectorState)
	nextID    int
	triggers  Triggers

	disconnectErr   error
	disconnectPanic bool
	block           bool
	disconnectCalls int
}

func (f *fakeConnector) State() ConnectorState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeConnector) Subscribe(fn func(ConnectorState)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listeners == nil {
		f.listeners = make(map[int]func(ConnectorState))
	}
	f.nextID++
	id := f.nextID
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeConnector) Triggers() Triggers {
	return f.triggers
}

func (f *fakeConnector) Disconnect(ctx context.Context) error {
	f.disconnectCalls++
	if f.disconnectPanic {
		panic("connector exploded")
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.disconnectErr
}

func (f *fakeConnector) emit(state ConnectorState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
	f.notify(state)
}

// notify delivers payload to listeners without touching the stored state.
func (f *fakeConnector) notify(payload ConnectorState) {
	f.mu.Lock()
	var fns []func(ConnectorState)
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(payload)
	}
}
