package domain

// SessionPhase is one state of the wallet session state machine.
type SessionPhase string

const (
	PhaseDisconnected SessionPhase = "disconnected"
	PhaseConnecting   SessionPhase = "connecting"
	PhaseConnected    SessionPhase = "connected"
)

// WalletSession is the application's view of the wallet connection.
// Address is only set while Phase is PhaseConnected.
type WalletSession struct {
	Phase   SessionPhase `json:"phase"`
	Address string       `json:"address,omitempty"`
}

// DisconnectedSession is the initial and terminal session.
func DisconnectedSession() WalletSession {
	return WalletSession{Phase: PhaseDisconnected}
}

func (s WalletSession) Connected() bool {
	return s.Phase == PhaseConnected
}

func (s WalletSession) Connecting() bool {
	return s.Phase == PhaseConnecting
}
