package wallet

import "context"

// ConnectorState is what the external wallet connector currently reports.
type ConnectorState struct {
	IsConnected  bool   `json:"isConnected"`
	IsConnecting bool   `json:"isConnecting"`
	Address      string `json:"address"`
}

// Triggers are the connector's UI entry points. A nil func means the
// connector has not initialized that trigger yet.
type Triggers struct {
	OpenConnectModal func()
	OpenAccountModal func()
	OpenChainModal   func()
}

// Connector is the external wallet kit. The session manager is its only
// caller and subscriber.
type Connector interface {
	State() ConnectorState
	// Subscribe registers fn for every state change and returns a func
	// that removes it.
	Subscribe(fn func(ConnectorState)) (unsubscribe func())
	Triggers() Triggers
	// Disconnect asks the connector to tear down its session.
	Disconnect(ctx context.Context) error
}
