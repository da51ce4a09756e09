package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wiredm/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	user := flag.String("user", "tester", "username to log in as")
	password := flag.String("password", "secret", "password for -user")
	to := flag.String("to", "", "if set, send -text to this user and wait for the echo")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	token, err := login(ctx, *base, *user, *password)
	if err != nil {
		return err
	}

	wsURL := "ws" + strings.TrimPrefix(*base, "http") + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	for id, topic := range map[string]string{"m": proto.TopicNewMessage, "r": proto.TopicNewReaction} {
		data, err := json.Marshal(proto.SubscribeData{ID: id, Topic: topic})
		if err != nil {
			return fmt.Errorf("marshal subscribe: %w", err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSubscribe, Data: data}); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}

	acks := 0
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s id=%s", outbound.Type, outbound.ID)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		switch outbound.Type {
		case proto.OutboundTypeError:
			return fmt.Errorf("server error: %s: %s", outbound.Error.Code, outbound.Error.Msg)
		case proto.OutboundTypeSubscribed:
			acks++
			if acks == 2 {
				if *to == "" {
					fmt.Println("subscribed; waiting for events")
					continue
				}
				if err := send(ctx, *base, token, *to, *text); err != nil {
					return err
				}
			}
		case proto.OutboundTypeEvent:
			raw, err := json.Marshal(outbound.Data)
			if err != nil {
				return fmt.Errorf("marshal outbound data: %w", err)
			}
			fmt.Printf("Data: %s\n", raw)
			if *to != "" && outbound.Event == proto.TopicNewMessage {
				return nil
			}
		}
	}
}

func login(ctx context.Context, base, user, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := postJSON(ctx, base+"/api/login", "", map[string]string{"username": user, "password": password}, &resp); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return resp.Token, nil
}

func send(ctx context.Context, base, token, to, text string) error {
	if err := postJSON(ctx, base+"/api/messages", token, map[string]string{"to": to, "content": text}, nil); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func postJSON(ctx context.Context, url, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
