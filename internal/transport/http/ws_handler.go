package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vovakirdan/wiredm/internal/auth"
	"github.com/vovakirdan/wiredm/internal/config"
	"github.com/vovakirdan/wiredm/internal/core"
	"github.com/vovakirdan/wiredm/internal/metrics"
	"github.com/vovakirdan/wiredm/internal/proto"
)

// outboundBuffer is the number of frames queued for the writer of one connection.
const outboundBuffer = 16

// WSHandler upgrades HTTP connections and serves subscriptions over them.
type WSHandler struct {
	hub      *core.Hub
	resolver *auth.Resolver
	cfg      config.WSConfig
	metrics  *metrics.Metrics
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, resolver *auth.Resolver, cfg config.WSConfig, m *metrics.Metrics, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, resolver: resolver, cfg: cfg, metrics: m, log: logger}
}

// wsConn is the state of one upgraded connection.
type wsConn struct {
	id       string
	identity auth.Identity
	conn     *websocket.Conn
	out      chan proto.Outbound
	limiter  *inboundLimiter
	// subs is owned by the read loop.
	subs map[string]context.CancelFunc
}

// ServeHTTP resolves the caller from the Authorization header or ?token=, then upgrades.
// It is mounted outside gin so Accept can hijack the raw connection.
// GET /ws
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("github.com/vovakirdan/wiredm/internal/transport/http").Start(r.Context(), "ws.handshake")

	credential := r.Header.Get("Authorization")
	if credential == "" {
		credential = r.URL.Query().Get("token")
	}
	identity, err := h.resolver.Resolve(ctx, credential)
	if err != nil {
		span.End()
		h.log.Debug().Err(err).Msg("ws handshake rejected")
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Unauthenticated",
			Code:  string(core.KindUnauthenticated),
		})
		return
	}
	span.SetAttributes(attribute.String("ws.user", identity.Username))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	span.End()
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	h.metrics.IncWSActive()
	defer h.metrics.DecWSActive()

	client := &wsConn{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
		out:      make(chan proto.Outbound, outboundBuffer),
		limiter:  newInboundLimiter(h.cfg.InboundRPS, h.cfg.InboundBurst),
		subs:     make(map[string]context.CancelFunc),
	}
	logger := h.log.With().Str("conn_id", client.id).Str("user", identity.Username).Logger()
	logger.Debug().Msg("ws connected")

	connCtx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(connCtx, client, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(connCtx, client, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine and every subscription
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	logger.Debug().Msg("ws disconnected")
	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, client *wsConn, logger *zerolog.Logger) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, client.conn, &inbound); err != nil {
			return err
		}

		if !client.limiter.allow() {
			if !h.send(ctx, client, outboundError("", "rate_limited", "too many messages")) {
				return ctx.Err()
			}
			continue
		}

		reply := h.handleInbound(ctx, client, inbound, logger)
		if reply != nil && !h.send(ctx, client, *reply) {
			return ctx.Err()
		}
	}
}

func (h *WSHandler) handleInbound(ctx context.Context, client *wsConn, inbound proto.Inbound, logger *zerolog.Logger) *proto.Outbound {
	var data proto.SubscribeData
	if len(inbound.Data) > 0 {
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			reply := outboundError("", string(core.KindInvalidArgument), "malformed data")
			return &reply
		}
	}

	switch inbound.Type {
	case proto.InboundTypeSubscribe:
		if data.ID == "" {
			reply := outboundError("", string(core.KindInvalidArgument), "id is required")
			return &reply
		}
		if _, exists := client.subs[data.ID]; exists {
			reply := outboundError(data.ID, string(core.KindInvalidArgument), "subscription id already in use")
			return &reply
		}
		topic, ok := topicFromWire(data.Topic)
		if !ok {
			reply := outboundError(data.ID, string(core.KindInvalidArgument), "unknown topic")
			return &reply
		}

		subCtx, cancel := context.WithCancel(ctx)
		stream, err := h.hub.Subscribe(subCtx, client.identity.Username, topic)
		if err != nil {
			cancel()
			reply := outboundFromError(data.ID, err)
			return &reply
		}
		client.subs[data.ID] = cancel
		go h.pump(subCtx, client, data.ID, stream)

		logger.Debug().Str("sub_id", data.ID).Str("topic", data.Topic).Msg("subscribed")
		return &proto.Outbound{Type: proto.OutboundTypeSubscribed, ID: data.ID, Event: data.Topic}

	case proto.InboundTypeUnsubscribe:
		cancel, exists := client.subs[data.ID]
		if !exists {
			reply := outboundError(data.ID, string(core.KindNotFound), "unknown subscription")
			return &reply
		}
		cancel()
		delete(client.subs, data.ID)
		return &proto.Outbound{Type: proto.OutboundTypeUnsubscribed, ID: data.ID}

	default:
		reply := outboundError("", "invalid_message", "unknown message type")
		return &reply
	}
}

// pump copies one subscription's stream onto the connection's outbound queue.
func (h *WSHandler) pump(ctx context.Context, client *wsConn, subID string, stream <-chan core.Event) {
	for ev := range stream {
		if !h.send(ctx, client, outboundFromEvent(subID, ev)) {
			return
		}
	}
}

func (h *WSHandler) send(ctx context.Context, client *wsConn, frame proto.Outbound) bool {
	select {
	case client.out <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, client *wsConn, logger *zerolog.Logger) error {
	for {
		select {
		case frame := <-client.out:
			if err := wsjson.Write(ctx, client.conn, frame); err != nil {
				logger.Error().Err(err).Msg("write ws frame")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
