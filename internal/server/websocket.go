package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleTail upgrades to WebSocket and streams lines that pass the active
// filter as they are ingested.
func (s *Server) handleTail(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	lines := s.eng.Subscribe()

	// Read pump — detect client disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	// Write pump — send lines as JSON.
	for line := range lines {
		msg := struct {
			Timestamp string `json:"timestamp"`
			Source    string `json:"source"`
			Seq       uint64 `json:"seq"`
			Severity  string `json:"severity"`
			Message   string `json:"message"`
			Raw       string `json:"raw"`
		}{
			Timestamp: line.EffectiveTime().Format(time.RFC3339),
			Source:    line.Source,
			Seq:       line.Seq,
			Severity:  line.Severity.String(),
			Message:   line.Message,
			Raw:       line.Raw,
		}

		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("websocket write failed: %v", err)
			return
		}
	}
}
