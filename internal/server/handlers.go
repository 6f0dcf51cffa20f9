// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebSocketHandler upgrades the request, starts the client's write pump and
// runs the chat session loop on the request goroutine until the connection
// closes.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, r.RemoteAddr, s.cfg.MaxMessageSize, s.logger)
	client.Logger().Debug("WebSocket connection established")

	go client.WritePump()
	s.hub.Serve(r.Context(), client, client.Logger())
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat server is running!")
}

// StatusResponse is the body of the JSON status endpoint.
type StatusResponse struct {
	Status    string    `json:"status"`
	Users     int       `json:"users"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusHandler reports liveness and the number of registered users.
func (s *Server) StatusHandler(w http.ResponseWriter, _ *http.Request) {
	response := StatusResponse{
		Status:    "UP",
		Users:     s.hub.Directory().Len(),
		Timestamp: time.Now(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Warnf("Error writing status response: %v", err)
	}
}

// TestPageHandler serves an HTML page for trying the chat protocol from a
// browser. Lines starting with "/" are sent as commands ("/kick bob"), lines
// starting with "@name " as private messages.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPageHTML)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Chat Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .info { color: gray; font-style: italic; }
        .error { color: #721c24; }
        .success { color: #155724; }
        .private { color: purple; }
    </style>
</head>
<body>
    <h1>Chat Test</h1>
    <div>
        <input type="text" id="input" placeholder="Username, message, @user message or /mute user">
        <button onclick="send()">Send</button>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const input = document.getElementById('input');
        const connectButton = document.getElementById('connectButton');

        function addLine(text, cls) {
            const el = document.createElement('div');
            el.className = cls;
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function render(frame) {
            switch (frame.type) {
            case 'chat':
                const d = frame.data;
                addLine('[' + d.timestamp + '] ' + d.username + (d.private ? ' (private)' : '') + ': ' + d.message,
                    d.private ? 'private' : '');
                break;
            case 'user_list':
                addLine('Online: ' + frame.users.map(u => u.username + ' since ' + u.login_time).join(', '), 'info');
                break;
            default:
                addLine(frame.message, frame.type);
            }
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = () => { connectButton.textContent = 'Disconnect'; };
            ws.onmessage = (event) => render(JSON.parse(event.data));
            ws.onclose = () => {
                addLine('Connection closed', 'info');
                connectButton.textContent = 'Connect';
                ws = null;
            };
        }

        function toggleConnection() {
            if (ws) {
                ws.close();
            } else {
                connect();
            }
        }

        function send() {
            const text = input.value.trim();
            if (!text || !ws || ws.readyState !== WebSocket.OPEN) {
                return;
            }
            if (text.startsWith('/')) {
                ws.send(JSON.stringify({command: text.slice(1)}));
            } else if (text.startsWith('@') && text.indexOf(' ') > 1) {
                const space = text.indexOf(' ');
                ws.send(JSON.stringify({to: text.slice(1, space), message: text.slice(space + 1)}));
            } else {
                ws.send(JSON.stringify({message: text}));
            }
            input.value = '';
        }

        input.addEventListener('keypress', (e) => { if (e.key === 'Enter') { send(); } });
    </script>
</body>
</html>`
