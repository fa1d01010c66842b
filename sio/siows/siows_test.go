package siows

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/fcurve/sio"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitFor(t *testing.T, f func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !f() {
		if time.Now().After(deadline) {
			t.Fatal("timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer(t *testing.T) {
	var (
		ctx = context.Background()
		s   = NewServer()
		srv = httptest.NewServer(s)
	)
	defer srv.Close()

	require.NoError(t, s.Start(ctx))
	in, out, err := s.IO(ctx)
	require.NoError(t, err)

	conn := dial(t, srv)
	defer conn.Close()
	waitFor(t, func() bool { return s.Clients() == 1 })

	out <- []sio.Sample{{Curve: "height", Frame: 1, Value: 2}}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, bs, err := conn.ReadMessage()
	require.NoError(t, err)
	var samples []sio.Sample
	require.NoError(t, json.Unmarshal(bs, &samples))
	assert.Equal(t, []sio.Sample{{Curve: "height", Frame: 1, Value: 2}}, samples)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(" seek 4 ")))
	select {
	case line := <-in:
		assert.Equal(t, "seek 4", line)
	case <-time.After(5 * time.Second):
		t.Fatal("no command")
	}

	close(out)
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, 0, s.Clients())

	// The server closes the connection.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestClientGone(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn := dial(t, srv)
	waitFor(t, func() bool { return s.Clients() == 1 })
	conn.Close()
	waitFor(t, func() bool { return s.Clients() == 0 })
}
