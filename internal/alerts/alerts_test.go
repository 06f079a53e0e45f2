package alerts

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

	"github.com/aoi01/fridgesnap/internal/expiry"
	"github.com/aoi01/fridgesnap/internal/logger"
	"github.com/aoi01/fridgesnap/internal/models"
)

var today = models.NewDate(2024, time.April, 10)

type staticSource []models.FoodItem

func (s staticSource) Items(context.Context) []models.FoodItem { return s }
func (s staticSource) Today() models.Date                     { return today }

type recorder struct {
	payloads []any
}

func (r *recorder) Broadcast(payload any) (int, error) {
	r.payloads = append(r.payloads, payload)
	return 1, nil
}

func TestScan_OnlyUrgentItems(t *testing.T) {
	src := staticSource{
		{ID: "1", Name: "yogurt", ExpiryDate: today.AddDays(-1)},
		{ID: "2", Name: "rice", ExpiryDate: today.AddDays(90)},
		{ID: "3", Name: "tofu", ExpiryDate: today.AddDays(2)},
	}
	rec := &recorder{}
	s := NewScanner(src, rec, time.Hour, logger.NewNop())

	alert := s.Scan(context.Background())
	require.NotNil(t, alert)
	require.Len(t, rec.payloads, 1)

	assert.Equal(t, "expiry.alert", alert.Kind)
	require.Len(t, alert.Items, 2)
	assert.Equal(t, Item{ID: "1", Name: "yogurt", Status: expiry.StatusExpired, DaysLeft: -1}, alert.Items[0])
	assert.Equal(t, Item{ID: "3", Name: "tofu", Status: expiry.StatusSoon, DaysLeft: 2}, alert.Items[1])
}

func TestScan_NothingUrgent(t *testing.T) {
	rec := &recorder{}
	s := NewScanner(staticSource{{ID: "1", Name: "rice", ExpiryDate: today.AddDays(30)}}, rec, time.Hour, logger.NewNop())

	assert.Nil(t, s.Scan(context.Background()))
	assert.Empty(t, rec.payloads)
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	s := NewScanner(staticSource{}, &recorder{}, 0, logger.NewNop())

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestHub_DeliversAlerts(t *testing.T) {
	hub := NewHub(logger.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	s := NewScanner(staticSource{{ID: "1", Name: "milk", ExpiryDate: today}}, hub, time.Hour, logger.NewNop())
	require.NotNil(t, s.Scan(context.Background()))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Alert
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "expiry.alert", got.Kind)
	require.Len(t, got.Items, 1)
	assert.Equal(t, expiry.StatusToday, got.Items[0].Status)
}

func TestHub_ForgetsClosedClients(t *testing.T) {
	hub := NewHub(logger.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_DropsSilentClients(t *testing.T) {
	hub := NewHub(logger.NewNop())
	hub.pingInterval = 20 * time.Millisecond
	hub.pongWait = 100 * time.Millisecond
	defer hub.Close()

	// never reads, so never answers pings
	dialHub(t, hub)

	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_KeepsClientsThatAnswerPings(t *testing.T) {
	hub := NewHub(logger.NewNop())
	hub.pingInterval = 20 * time.Millisecond
	hub.pongWait = 100 * time.Millisecond
	defer hub.Close()

	conn := dialHub(t, hub)
	go func() {
		// reading runs the default ping handler, which replies with a pong
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 1, hub.Count())
}

func TestHub_DropsOversizedMessages(t *testing.T) {
	hub := NewHub(logger.NewNop())
	defer hub.Close()

	conn := dialHub(t, hub)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, make([]byte, 4*maxMessageBytes)))

	assert.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 10*time.Millisecond)
}
