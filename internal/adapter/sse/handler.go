package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultKeepalive is how often an idle stream receives a comment line.
const DefaultKeepalive = 30 * time.Second

// Handler streams broker messages to one client per request. The connected
// event carries the client ID and whatever snapshot returns, so a client
// can render without a separate fetch.
func Handler(b *Broker, snapshot func() any, keepalive time.Duration) http.HandlerFunc {
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		clientID := r.Header.Get("X-Client-Id")
		if clientID == "" {
			clientID = uuid.NewString()
		}

		messages := b.AddClient(clientID)
		defer b.RemoveClient(clientID, messages)

		data := map[string]any{"client_id": clientID}
		if snapshot != nil {
			data["state"] = snapshot()
		}
		if err := writeMessage(w, b.stamp(Message{Type: EventConnected, Data: data})); err != nil {
			b.logger.Warn("sse initial write failed", "client_id", clientID, "error", err)
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(keepalive)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if err := writeMessage(w, msg); err != nil {
					b.logger.Warn("sse write failed", "client_id", clientID, "error", err)
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// writeMessage writes msg in event-stream framing with a JSON data line.
func writeMessage(w io.Writer, msg Message) error {
	data := []byte("{}")
	if msg.Data != nil {
		var err error
		if data, err = json.Marshal(msg.Data); err != nil {
			return fmt.Errorf("marshal sse data: %w", err)
		}
	}
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", msg.ID, msg.Type, data)
	return err
}
