package wallet

import (
	"strings"

	"tokenboard/internal/domain"
)

// Reconcile derives the session from a connector snapshot alone. It is
// level-triggered: the previous session plays no part.
func Reconcile(state ConnectorState) domain.WalletSession {
	address := strings.TrimSpace(state.Address)
	switch {
	case state.IsConnected && address != "":
		return domain.WalletSession{Phase: domain.PhaseConnected, Address: address}
	case state.IsConnecting, state.IsConnected:
		// connected without an address is a handshake still in progress
		return domain.WalletSession{Phase: domain.PhaseConnecting}
	default:
		return domain.DisconnectedSession()
	}
}
