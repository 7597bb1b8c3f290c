package sse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent reads one event block and returns its fields.
func readEvent(t *testing.T, r *bufio.Reader) map[string]string {
	t.Helper()
	fields := map[string]string{}
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if len(fields) == 0 {
				continue
			}
			return fields
		}
		if strings.HasPrefix(line, ":") {
			fields["comment"] = strings.TrimSpace(line[1:])
			continue
		}
		k, v, _ := strings.Cut(line, ": ")
		fields[k] = v
	}
}

func TestHandler_StreamsConnectedAndBroadcast(t *testing.T) {
	b := newTestBroker()
	srv := httptest.NewServer(Handler(b, func() any { return map[string]float64{"lower_bound": 1} }, time.Minute))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-Client-Id", "client-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	connected := readEvent(t, reader)
	assert.Equal(t, EventConnected, connected["event"])

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(connected["data"]), &data))
	assert.Equal(t, "client-1", data["client_id"])
	assert.Equal(t, map[string]any{"lower_bound": 1.0}, data["state"])

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	b.Broadcast(Message{Type: EventThreshold, Data: map[string]float64{"lower_bound": 9}})

	ev := readEvent(t, reader)
	assert.Equal(t, EventThreshold, ev["event"])
	assert.JSONEq(t, `{"lower_bound":9}`, ev["data"])

	cancel()
	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHandler_GeneratesClientID(t *testing.T) {
	b := newTestBroker()
	srv := httptest.NewServer(Handler(b, nil, time.Minute))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	connected := readEvent(t, bufio.NewReader(resp.Body))
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(connected["data"]), &data))
	assert.Len(t, data["client_id"], 36)
	assert.NotContains(t, data, "state")
}

func TestHandler_Keepalive(t *testing.T) {
	b := newTestBroker()
	srv := httptest.NewServer(Handler(b, nil, 20*time.Millisecond))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readEvent(t, reader)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": keepalive\n", line)
}

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, Message{ID: 4, Type: "threshold", Data: map[string]int{"a": 1}}))
	assert.Equal(t, "id: 4\nevent: threshold\ndata: {\"a\":1}\n\n", buf.String())

	buf.Reset()
	require.NoError(t, writeMessage(&buf, Message{ID: 5, Type: "empty"}))
	assert.Equal(t, "id: 5\nevent: empty\ndata: {}\n\n", buf.String())
}
