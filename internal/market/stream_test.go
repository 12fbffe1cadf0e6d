package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"executor/internal/models"
)

func newMockStreamServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/shibusdt@trade", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("WebSocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(httpURL string) string {
	return strings.Replace(httpURL, "http://", "ws://", 1)
}

func TestStreamOracle_StreamURL(t *testing.T) {
	oracle := NewStreamOracle("wss://stream.binance.com:9443/")
	assert.Equal(t, "wss://stream.binance.com:9443/ws/shibusdt@trade", oracle.StreamURL("SHIBUSDT"))
}

func TestStreamOracle_FetchPrice(t *testing.T) {
	t.Run("returns price of first trade", func(t *testing.T) {
		server := newMockStreamServer(t, func(conn *websocket.Conn) {
			_ = conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"e":"trade","E":1700000000000,"s":"SHIBUSDT","t":12345,"p":"0.00002000","q":"1000000","T":1700000000000,"m":true,"M":true}`))
			_ = conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"e":"trade","s":"SHIBUSDT","p":"0.00009"}`))
			_, _, _ = conn.ReadMessage()
		})
		defer server.Close()

		price, err := NewStreamOracle(wsURL(server.URL)).FetchPrice(context.Background(), "SHIBUSDT")

		require.NoError(t, err)
		assert.Equal(t, "0.00002", price.String())
	})

	t.Run("missing price is malformed", func(t *testing.T) {
		server := newMockStreamServer(t, func(conn *websocket.Conn) {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"e":"trade","s":"SHIBUSDT"}`))
			_, _, _ = conn.ReadMessage()
		})
		defer server.Close()

		_, err := NewStreamOracle(wsURL(server.URL)).FetchPrice(context.Background(), "SHIBUSDT")

		assert.ErrorIs(t, err, models.ErrMalformedResponse)
	})

	t.Run("invalid json is malformed", func(t *testing.T) {
		server := newMockStreamServer(t, func(conn *websocket.Conn) {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
			_, _, _ = conn.ReadMessage()
		})
		defer server.Close()

		_, err := NewStreamOracle(wsURL(server.URL)).FetchPrice(context.Background(), "SHIBUSDT")

		assert.ErrorIs(t, err, models.ErrMalformedResponse)
	})

	t.Run("no trade before timeout", func(t *testing.T) {
		server := newMockStreamServer(t, func(conn *websocket.Conn) {
			_, _, _ = conn.ReadMessage()
		})
		defer server.Close()

		oracle := NewStreamOracle(wsURL(server.URL), WithReadTimeout(100*time.Millisecond))
		_, err := oracle.FetchPrice(context.Background(), "SHIBUSDT")

		assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	})

	t.Run("cancellation unblocks read", func(t *testing.T) {
		server := newMockStreamServer(t, func(conn *websocket.Conn) {
			_, _, _ = conn.ReadMessage()
		})
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		time.AfterFunc(100*time.Millisecond, cancel)

		start := time.Now()
		_, err := NewStreamOracle(wsURL(server.URL)).FetchPrice(ctx, "SHIBUSDT")

		require.ErrorIs(t, err, models.ErrUpstreamUnavailable)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("dial failure is upstream unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		_, err := NewStreamOracle(wsURL(server.URL)).FetchPrice(context.Background(), "SHIBUSDT")

		assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	})
}
