/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

HandleWebSocket upgrades the request and hands the connection to the chat Gateway, which owns
it until it closes. Rate limiting and identity token extraction run as middleware in front of it.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"lounge/internal/app/chat"
	"lounge/internal/pkg/auth/jwt"
	"lounge/internal/pkg/logx"
)

// HandleWebSocket creates an HTTP HandlerFunc that upgrades chat connections.
func HandleWebSocket(gateway *chat.Gateway, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boundAddress := jwt.BoundAddress(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		logx.Info("WebSocket connection established", "remote_ip", logx.AnonymizeIP(r.RemoteAddr), "token_bound", boundAddress != "")

		gateway.Serve(conn, boundAddress)
	}
}
