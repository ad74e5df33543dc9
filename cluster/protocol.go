// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cluster

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Control message types. Frame buffers travel as binary messages.
const (
	msgHello   = "hello"
	msgWelcome = "welcome"
	msgReject  = "reject"
	msgBarrier = "barrier"
	msgRelease = "release"
)

// message is a JSON control message.
type message struct {
	Type   string   `json:"type"`
	Rank   int      `json:"rank"`
	Size   int      `json:"size,omitempty"`
	Job    string   `json:"job,omitempty"`
	Work   Workload `json:"work"`
	Reason string   `json:"reason,omitempty"`
}

func writeMessage(conn *websocket.Conn, m message) error {
	data, err := sonic.Marshal(m)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readMessage reads the next control message and checks its type.
func readMessage(conn *websocket.Conn, want ...string) (message, error) {
	typ, data, err := conn.ReadMessage()
	if err != nil {
		return message{}, err
	}
	if typ != websocket.TextMessage {
		return message{}, fmt.Errorf("%w: got frame type %d, want control message", ErrProtocol, typ)
	}
	var m message
	if err := sonic.Unmarshal(data, &m); err != nil {
		return message{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	for _, w := range want {
		if m.Type == w {
			return m, nil
		}
	}
	return m, fmt.Errorf("%w: got %q, want %q", ErrProtocol, m.Type, want)
}

// readBuffer reads the next binary message.
func readBuffer(conn *websocket.Conn) ([]byte, error) {
	typ, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if typ != websocket.BinaryMessage {
		return nil, fmt.Errorf("%w: got frame type %d, want buffer", ErrProtocol, typ)
	}
	return data, nil
}
