package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/service"
)

const feedActorKey = "feed_actor"

// FeedReady is the first frame sent once the feed is subscribed.
const FeedReady = "feed.ready"

// EvaluationFeedHandler streams evaluation events over a websocket.
type EvaluationFeedHandler struct {
	feed      service.EvaluationSubscriber
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewEvaluationFeedHandler constructs the handler.
func NewEvaluationFeedHandler(feed service.EvaluationSubscriber, logger zerolog.Logger, keepAlive time.Duration) *EvaluationFeedHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &EvaluationFeedHandler{
		feed:      feed,
		logger:    logger.With().Str("component", "evaluation_feed_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the websocket route. It must run behind Authenticate.
func (h *EvaluationFeedHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		c.Locals(feedActorKey, actorFromContext(c))
		return c.Next()
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *EvaluationFeedHandler) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	actor, _ := conn.Locals(feedActorKey).(service.Actor)
	events, cancel, err := h.feed.Subscribe(actor)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "feed not available for role"))
		return
	}
	defer cancel()

	logger := h.logger.With().Uint("user_id", actor.ID).Str("role", actor.Role.String()).Logger()
	logger.Info().Msg("evaluation feed connected")
	defer logger.Info().Msg("evaluation feed disconnected")

	if err := conn.WriteJSON(fiber.Map{"type": FeedReady}); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("evaluation feed write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				logger.Debug().Err(err).Msg("evaluation feed ping failed")
				return
			}
		case <-closed:
			return
		}
	}
}
