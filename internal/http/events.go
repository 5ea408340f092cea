package httpx

import (
	"net/http"
	"time"

	"github.com/Nikita-Hritsay/TeamUp/internal/events"
)

func (r *Router) handleEventsWS(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "event feed disabled")
		return
	}
	teamID, ok := r.memberFeedTeam(w, req)
	if !ok {
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := events.NewWSClient(conn, r.logger)
	r.hub.Register(teamID, client)
	go r.keepAlive(client)
	go func() {
		defer func() {
			r.hub.Unregister(teamID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// keepAlive pings until a write fails; the reader goroutine handles teardown.
func (r *Router) keepAlive(client *events.WSClient) {
	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()
	for range ticker.C {
		if err := client.Ping(); err != nil {
			return
		}
	}
}

func (r *Router) handleEventsSSE(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "event feed disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "streaming unsupported")
		return
	}
	teamID, ok := r.memberFeedTeam(w, req)
	if !ok {
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := events.NewSSEClient(w, flusher, r.logger)
	r.hub.Register(teamID, client)
	defer func() {
		r.hub.Unregister(teamID, client)
		client.Close()
	}()

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}
