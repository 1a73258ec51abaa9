package websocket

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/crisis"
	"github.com/NeuralTrust/CareGuard/pkg/common"
	"github.com/NeuralTrust/CareGuard/pkg/config"
	infraWebsocket "github.com/NeuralTrust/CareGuard/pkg/infra/websocket"
)

type alertFeedHandler struct {
	logger *logrus.Logger
	feed   *crisis.Feed
	cfg    config.FeedConfig
	now    func() time.Time
}

func NewAlertFeedHandler(logger *logrus.Logger, feed *crisis.Feed, cfg config.FeedConfig) Handler {
	return &alertFeedHandler{
		logger: logger,
		feed:   feed,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Handle streams alert changes to a dashboard until either side hangs up.
// Clients may pass session_id and status query parameters to narrow the
// stream.
func (h *alertFeedHandler) Handle(c *websocket.Conn) {
	if sem, ok := c.Locals(string(common.WsSemaphoreContextKey)).(*infraWebsocket.Semaphore); ok {
		defer sem.Release()
	}

	filter := infraWebsocket.FeedFilter{
		SessionID: c.Query("session_id"),
		Status:    c.Query("status"),
	}
	responder, _ := c.Locals(string(common.ResponderContextKey)).(string)
	log := h.logger.WithFields(logrus.Fields{
		"responder":  responder,
		"session_id": filter.SessionID,
		"status":     filter.Status,
	})

	events, cancel := h.feed.Subscribe(h.cfg.Buffer)
	defer cancel()

	pongWait := h.cfg.PongWait
	if pongWait <= 0 {
		pongWait = 45 * time.Second
	}
	pingPeriod := h.cfg.PingPeriod
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		pingPeriod = pongWait * 2 / 3
	}

	if err := c.SetReadDeadline(h.now().Add(pongWait)); err != nil {
		log.WithError(err).Error("failed to set read deadline")
		return
	}
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(h.now().Add(pongWait))
	})

	// The dashboard never sends data; reading only surfaces close frames
	// and keeps pong handling alive.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := c.WriteJSON(infraWebsocket.FeedMessage{Type: infraWebsocket.MessageTypeHello, SentAt: h.now()}); err != nil {
		log.WithError(err).Debug("feed client went away before hello")
		return
	}
	log.Info("alert feed connected")
	defer log.Info("alert feed disconnected")

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !filter.Matches(ev) {
				continue
			}
			msg := infraWebsocket.FeedMessage{Type: infraWebsocket.MessageTypeAlert, Alert: &ev, SentAt: h.now()}
			if err := c.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("failed to write feed message")
				return
			}
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, h.now().Add(10*time.Second)); err != nil {
				log.WithError(err).Debug("feed ping failed")
				return
			}
		}
	}
}
