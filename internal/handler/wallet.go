package handler

import (
	"net/http"
	"time"

	"tokenboard/internal/config"
	"tokenboard/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sessionWriteTimeout = 5 * time.Second

// GetWalletSession godoc
// @Summary      Get wallet session
// @Description  Returns the current wallet session phase and address
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  domain.WalletSession
// @Router       /api/wallet/session [get]
func (h *Handler) GetWalletSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.wallet.Session())
}

// GetWalletConfig godoc
// @Summary      Get wallet setup
// @Description  Returns the app name, client/project ids and chains the wallet kit is set up with
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  config.WalletConfig
// @Router       /api/wallet/config [get]
func (h *Handler) GetWalletConfig(c *gin.Context) {
	cfg := h.wallet.Config()
	if cfg == nil {
		cfg = &config.WalletConfig{}
	}
	c.JSON(http.StatusOK, cfg)
}

// ConnectWallet godoc
// @Summary      Start wallet connection
// @Description  Asks the browser wallet kit to open its connect modal. The phase follows the kit's notifications.
// @Tags         wallet
// @Produce      json
// @Param        X-API-Key  header  string  false  "API key"
// @Success      202  {object}  map[string]interface{}
// @Router       /api/wallet/connect [post]
func (h *Handler) ConnectWallet(c *gin.Context) {
	h.wallet.ConnectWallet()
	h.accepted(c)
}

// OpenAccountModal godoc
// @Summary      Open account modal
// @Tags         wallet
// @Produce      json
// @Param        X-API-Key  header  string  false  "API key"
// @Success      202  {object}  map[string]interface{}
// @Router       /api/wallet/account [post]
func (h *Handler) OpenAccountModal(c *gin.Context) {
	h.wallet.OpenAccountModal()
	h.accepted(c)
}

// OpenChainModal godoc
// @Summary      Open chain modal
// @Tags         wallet
// @Produce      json
// @Param        X-API-Key  header  string  false  "API key"
// @Success      202  {object}  map[string]interface{}
// @Router       /api/wallet/chain [post]
func (h *Handler) OpenChainModal(c *gin.Context) {
	h.wallet.OpenChainModal()
	h.accepted(c)
}

// DisconnectWallet godoc
// @Summary      Disconnect wallet
// @Description  Tears down the wallet session. The session ends disconnected even if teardown fails.
// @Tags         wallet
// @Produce      json
// @Param        X-API-Key  header  string  false  "API key"
// @Success      200  {object}  domain.WalletSession
// @Router       /api/wallet/disconnect [post]
func (h *Handler) DisconnectWallet(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.disconnect-wallet")
	defer span.End()

	h.wallet.DisconnectWallet(ctx)
	c.JSON(http.StatusOK, h.wallet.Session())
}

// AttachWalletBridge upgrades to a WebSocket and serves it as the browser
// wallet kit bridge until the browser goes away.
func (h *Handler) AttachWalletBridge(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("wallet bridge upgrade failed", zap.Error(err))
		return
	}
	h.bridge.Attach(c.Request.Context(), conn)
}

// StreamWalletSession upgrades to a WebSocket and pushes the current session
// followed by every change.
func (h *Handler) StreamWalletSession(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("wallet session upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Subscribers run inside the reconciliation cycle, so never block there.
	// Each message is a full snapshot; only the newest pending one matters.
	updates := make(chan domain.WalletSession, 1)
	unsubscribe := h.wallet.Subscribe(func(s domain.WalletSession) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- s:
		default:
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := writeSession(conn, h.wallet.Session()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case s := <-updates:
			if err := writeSession(conn, s); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.log.Debug("wallet session stream ended", zap.Error(err))
				}
				return
			}
		}
	}
}

func writeSession(conn *websocket.Conn, s domain.WalletSession) error {
	_ = conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
	return conn.WriteJSON(s)
}

func (h *Handler) accepted(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{"status": "requested", "session": h.wallet.Session()})
}
