package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wiredm/internal/proto"
	"github.com/vovakirdan/wiredm/internal/store"
)

// wireFrame mirrors proto.Outbound with a raw payload for decoding in tests.
type wireFrame struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func (e *testEnv) dialWS(t *testing.T, ctx context.Context, token string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func writeFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data proto.SubscribeData) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}))
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) wireFrame {
	t.Helper()
	var f wireFrame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	return f
}

func subscribe(t *testing.T, ctx context.Context, conn *websocket.Conn, id, topic string) {
	t.Helper()
	writeFrame(t, ctx, conn, proto.InboundTypeSubscribe, proto.SubscribeData{ID: id, Topic: topic})
	ack := readFrame(t, ctx, conn)
	require.Equal(t, proto.OutboundTypeSubscribed, ack.Type)
	require.Equal(t, id, ack.ID)
	require.Equal(t, topic, ack.Event)
}

// expectSilence asserts no frame arrives within a short window.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	var f wireFrame
	err := wsjson.Read(ctx, conn, &f)
	require.Error(t, err, "unexpected frame: %+v", f)
}

func TestWSRejectsUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	_, resp, err := websocket.Dial(ctx, wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, wsURL+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSQueryToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "alice")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	subscribe(t, ctx, conn, "s1", proto.TopicNewMessage)
}

func TestWSNewMessageDeliveredToParticipantsOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")
	carol := env.signup(t, "carol")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	bobConn := env.dialWS(t, ctx, bob)
	carolConn := env.dialWS(t, ctx, carol)
	subscribe(t, ctx, bobConn, "m", proto.TopicNewMessage)
	subscribe(t, ctx, carolConn, "m", proto.TopicNewMessage)

	var sent store.Message
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/messages", alice,
		SendMessageRequest{To: "bob", Content: "hi"}, &sent))

	frame := readFrame(t, ctx, bobConn)
	assert.Equal(t, proto.OutboundTypeEvent, frame.Type)
	assert.Equal(t, "m", frame.ID)
	assert.Equal(t, proto.TopicNewMessage, frame.Event)

	var got store.Message
	require.NoError(t, json.Unmarshal(frame.Data, &got))
	assert.Equal(t, sent.UUID, got.UUID)
	assert.Equal(t, "hi", got.Content)

	expectSilence(t, carolConn)
}

func TestWSNewReaction(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var sent store.Message
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/messages", alice,
		SendMessageRequest{To: "bob", Content: "hi"}, &sent))

	aliceConn := env.dialWS(t, ctx, alice)
	subscribe(t, ctx, aliceConn, "r", proto.TopicNewReaction)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/messages/"+sent.UUID+"/reactions", bob,
		ReactRequest{Content: "😆"}, nil))

	frame := readFrame(t, ctx, aliceConn)
	assert.Equal(t, proto.TopicNewReaction, frame.Event)
	var got store.Reaction
	require.NoError(t, json.Unmarshal(frame.Data, &got))
	assert.Equal(t, "😆", got.Content)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, sent.UUID, got.MessageUUID)
}

func TestWSSubscriptionErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn := env.dialWS(t, ctx, token)

	writeFrame(t, ctx, conn, proto.InboundTypeSubscribe, proto.SubscribeData{ID: "x", Topic: "everything"})
	frame := readFrame(t, ctx, conn)
	assert.Equal(t, proto.OutboundTypeError, frame.Type)
	require.NotNil(t, frame.Error)
	assert.Equal(t, "invalid_argument", frame.Error.Code)

	writeFrame(t, ctx, conn, proto.InboundTypeSubscribe, proto.SubscribeData{Topic: proto.TopicNewMessage})
	frame = readFrame(t, ctx, conn)
	assert.Equal(t, proto.OutboundTypeError, frame.Type)

	subscribe(t, ctx, conn, "dup", proto.TopicNewMessage)
	writeFrame(t, ctx, conn, proto.InboundTypeSubscribe, proto.SubscribeData{ID: "dup", Topic: proto.TopicNewReaction})
	frame = readFrame(t, ctx, conn)
	assert.Equal(t, proto.OutboundTypeError, frame.Type)
	assert.Equal(t, "dup", frame.ID)

	writeFrame(t, ctx, conn, proto.InboundTypeUnsubscribe, proto.SubscribeData{ID: "ghost"})
	frame = readFrame(t, ctx, conn)
	require.NotNil(t, frame.Error)
	assert.Equal(t, "not_found", frame.Error.Code)

	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: "shout"}))
	frame = readFrame(t, ctx, conn)
	require.NotNil(t, frame.Error)
	assert.Equal(t, "invalid_message", frame.Error.Code)
}

func TestWSUnsubscribeStopsDelivery(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	bobConn := env.dialWS(t, ctx, bob)
	subscribe(t, ctx, bobConn, "m", proto.TopicNewMessage)

	writeFrame(t, ctx, bobConn, proto.InboundTypeUnsubscribe, proto.SubscribeData{ID: "m"})
	frame := readFrame(t, ctx, bobConn)
	assert.Equal(t, proto.OutboundTypeUnsubscribed, frame.Type)
	assert.Equal(t, "m", frame.ID)

	require.Eventually(t, func() bool {
		return env.broker.Subscribers("NEW_MESSAGE") == 0
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/messages", alice,
		SendMessageRequest{To: "bob", Content: "hi"}, nil))
	expectSilence(t, bobConn)
}

func TestWSDisconnectReleasesFeeds(t *testing.T) {
	env := newTestEnv(t)
	bob := env.signup(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?token=" + bob
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	subscribe(t, ctx, conn, "m", proto.TopicNewMessage)
	subscribe(t, ctx, conn, "r", proto.TopicNewReaction)
	assert.Equal(t, 1, env.broker.Subscribers("NEW_MESSAGE"))

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))

	require.Eventually(t, func() bool {
		return env.broker.Subscribers("NEW_MESSAGE") == 0 && env.broker.Subscribers("NEW_REACTION") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTopicFromWire(t *testing.T) {
	topic, ok := topicFromWire(proto.TopicNewMessage)
	assert.True(t, ok)
	assert.Equal(t, "NEW_MESSAGE", topic)

	_, ok = topicFromWire("NEW_MESSAGE")
	assert.False(t, ok)
}

func TestWSRejectionBody(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.server.Client().Get(env.server.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthenticated", body.Code)
}
