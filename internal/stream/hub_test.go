// internal/stream/hub_test.go
package stream

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hub := NewHub(DefaultConfig(), logger)
	hub.Start()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func testEvent(recipient string) RoyaltyEvent {
	return RoyaltyEvent{
		ID:               "evt-1",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Amount:           1234,
		Source:           "licence_sale",
		CertificateID:    "asset-1",
		CertificateTitle: "Sunset Over Water",
		RecipientWallet:  recipient,
	}
}

func TestConnectionAck(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv, "")

	msg := readMessage(t, conn)
	assert.Equal(t, "connection", msg.Type)
	assert.NotEmpty(t, msg.ClientID)
}

func TestUnfilteredClientReceivesEverything(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "")
	readMessage(t, conn) // connection ack

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	hub.Publish(testEvent("some-wallet"))

	msg := readMessage(t, conn)
	assert.Equal(t, "royalty_event", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, "some-wallet", msg.Event.RecipientWallet)
	assert.Equal(t, uint64(1234), msg.Event.Amount)
}

func TestWalletFilter(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "")
	readMessage(t, conn)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	payload, _ := json.Marshal(message{Type: "register_wallet", WalletAddress: "wallet-a"})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))

	msg := readMessage(t, conn)
	assert.Equal(t, "registration_success", msg.Type)
	assert.Equal(t, "wallet-a", msg.WalletAddress)

	// Non-matching event is filtered out; the matching one arrives next.
	hub.Publish(testEvent("wallet-b"))
	hub.Publish(testEvent("wallet-a"))

	msg = readMessage(t, conn)
	assert.Equal(t, "royalty_event", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, "wallet-a", msg.Event.RecipientWallet)
}

func TestWalletFilterReplacement(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "?wallet=wallet-a")
	readMessage(t, conn)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	// Re-registering replaces the filter rather than adding to it.
	payload, _ := json.Marshal(message{Type: "register_wallet", WalletAddress: "wallet-b"})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
	msg := readMessage(t, conn)
	require.Equal(t, "registration_success", msg.Type)

	hub.Publish(testEvent("wallet-a"))
	hub.Publish(testEvent("wallet-b"))

	msg = readMessage(t, conn)
	require.NotNil(t, msg.Event)
	assert.Equal(t, "wallet-b", msg.Event.RecipientWallet)
}

func TestPingPong(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv, "")
	readMessage(t, conn)

	payload, _ := json.Marshal(message{Type: "ping"})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))

	msg := readMessage(t, conn)
	assert.Equal(t, "pong", msg.Type)
	assert.NotEmpty(t, msg.Timestamp)
}

func TestMalformedClientMessageIsIgnored(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "")
	readMessage(t, conn)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// Connection survives; events still flow.
	hub.Publish(testEvent("anyone"))
	msg := readMessage(t, conn)
	assert.Equal(t, "royalty_event", msg.Type)
}

func TestClientDisconnectCleanup(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "")
	readMessage(t, conn)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		2*time.Second, 5*time.Millisecond)

	// Publishing with no subscribers is safe.
	hub.Publish(testEvent("anyone"))
}

func TestStopWhileClientsAreSending(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hub := NewHub(DefaultConfig(), logger)
	hub.Start()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))
	defer srv.Close()

	// Clients hammer the hub with ping messages so that readPump goroutines
	// are enqueueing responses while the hub tears everything down.
	payload, _ := json.Marshal(message{Type: "ping"})
	stop := make(chan struct{})
	var writers sync.WaitGroup
	for i := 0; i < 4; i++ {
		conn := dial(t, srv, "")
		readMessage(t, conn)
		writers.Add(1)
		go func(conn *websocket.Conn) {
			defer writers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if conn.WriteMessage(websocket.TextMessage, payload) != nil {
					return
				}
			}
		}(conn)
	}

	require.Eventually(t, func() bool { return hub.ClientCount() == 4 },
		2*time.Second, 5*time.Millisecond)

	hub.Stop()
	close(stop)
	writers.Wait()

	assert.Equal(t, 0, hub.ClientCount())

	// The hub stays safe to publish to after shutdown.
	hub.Publish(testEvent("anyone"))
}
