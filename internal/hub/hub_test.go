package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, role string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?role=" + role
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Consume the connection_status greeting.
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, EventConnectionStatus, env.Event)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleProducer, ParseRole("extension"))
	assert.Equal(t, RoleConsumer, ParseRole("panel"))
	assert.Equal(t, RoleUnknown, ParseRole(""))
	assert.Equal(t, RoleUnknown, ParseRole("admin"))
}

func TestEmitToRoleIsolation(t *testing.T) {
	h := New(zerolog.Nop())
	srv := wsServer(t, h)

	producer := dial(t, srv, "extension")
	consumer := dial(t, srv, "panel")

	// Wait until both registrations are visible.
	require.Eventually(t, func() bool {
		return h.HasRole(RoleProducer) && h.HasRole(RoleConsumer)
	}, 2*time.Second, 10*time.Millisecond)

	h.EmitToRole(RoleProducer, EventDownloadComplete, nil)
	h.EmitToRole(RoleConsumer, EventImportVideo, map[string]string{"path": "/m/v.mp4"})

	env := readEvent(t, producer)
	assert.Equal(t, EventDownloadComplete, env.Event)

	env = readEvent(t, consumer)
	assert.Equal(t, EventImportVideo, env.Event)

	// The producer must not also receive the consumer event.
	require.NoError(t, producer.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var extra envelope
	err := producer.ReadJSON(&extra)
	assert.Error(t, err, "producer received event targeted at consumer: %+v", extra)
}

// Clients come and go while downloads emit progress; a disconnect racing an
// in-flight emit must never panic the emitter.
func TestEmitSurvivesDisconnect(t *testing.T) {
	h := New(zerolog.Nop())
	srv := wsServer(t, h)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					h.EmitToRole(RoleProducer, EventProgress, map[string]float64{"progress": 50})
				}
			}
		}()
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?role=extension"
	for i := 0; i < 100; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		conn.Close()
	}

	close(stop)
	wg.Wait()
}

func TestEmitToEmptyAudienceIsSilent(t *testing.T) {
	h := New(zerolog.Nop())
	assert.NotPanics(t, func() {
		h.EmitToRole(RoleConsumer, EventImportVideo, map[string]string{"path": "/x"})
	})
}

func TestMarkImportDeduplicates(t *testing.T) {
	h := New(zerolog.Nop())

	assert.True(t, h.MarkImport("/media/a.mp4"))
	assert.False(t, h.MarkImport("/media/a.mp4"))
	assert.True(t, h.MarkImport("/media/b.mp4"))
}

func TestMarkImportExpires(t *testing.T) {
	h := New(zerolog.Nop())
	current := time.Unix(0, 0)
	h.now = func() time.Time { return current }

	require.True(t, h.MarkImport("/media/a.mp4"))
	current = current.Add(importTTL + time.Minute)
	assert.True(t, h.MarkImport("/media/a.mp4"), "expired entry should allow re-import")
}

func TestHistorySince(t *testing.T) {
	hist := NewHistory(3)
	for _, name := range []string{"a", "b", "c", "d"} {
		hist.Append(Event{Name: name})
	}

	events := hist.Since(0)
	require.Len(t, events, 3, "buffer is bounded")
	assert.Equal(t, "b", events[0].Name)
	assert.Equal(t, "d", events[2].Name)

	events = hist.Since(3)
	require.Len(t, events, 1)
	assert.Equal(t, "d", events[0].Name)
	assert.Equal(t, int64(4), events[0].Seq)
}

func TestEventsRecordedToHistory(t *testing.T) {
	h := New(zerolog.Nop())
	h.EmitToRole(RoleConsumer, EventImportVideo, map[string]string{"path": "/x"})

	events := h.Since(0)
	require.Len(t, events, 1)
	assert.Equal(t, EventImportVideo, events[0].Name)
	assert.Equal(t, RoleConsumer, events[0].Audience)

	data, err := json.Marshal(events[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"audience":"panel"`)
}
