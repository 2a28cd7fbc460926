package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"nhooyr.io/websocket"

	"arcade/internal/hub"
)

// handleWebSocket authenticates the connection, upgrades it and pumps
// events between the socket and the hub. Connections without a verified
// identity are refused before the upgrade.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	identity, err := s.tokens.Verify(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin is enforced by the CORS layer
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	client := hub.NewConn(identity.UserID, identity.Username)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	// Writer goroutine: drain hub events to the socket
	go func() {
		for msg := range client.Outbound() {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader loop
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var ev hub.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		s.hub.HandleEvent(client, ev)
	}
}
