// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler returns the handler for session establishment. The target
// room code and display name arrive as path segments and are the only
// credentials a session ever presents; admission validates them after the
// upgrade so rejections can travel as error envelopes over the socket.
func WebSocketHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		roomCode := r.PathValue("room")
		displayName := r.PathValue("name")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		NewSession(conn, registry, roomCode, displayName, r.RemoteAddr).Start()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Huddle server is running!")
}

// TestPageHandler serves an HTML test page for exercising the room protocol
// by hand: join a room by code and name, exchange messages, and watch system
// and error envelopes render. Pure presentation; it only speaks the wire
// protocol.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Huddle Test Room</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; max-width: 640px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .system { color: gray; text-align: center; font-style: italic; }
        .chat .sender { color: #007cba; font-weight: bold; }
        .error { color: #721c24; background-color: #f8d7da; padding: 5px; }
    </style>
</head>
<body>
    <h1>Huddle Test Room</h1>

    <div id="entry">
        <input type="text" id="nameInput" placeholder="Display name">
        <input type="text" id="codeInput" placeholder="6-digit room code" maxlength="6">
        <button onclick="joinRoom()">Join</button>
        <button onclick="createRoom()">Create room</button>
    </div>

    <div id="chat" style="display:none">
        <div id="roomLabel"></div>
        <div id="messages"></div>
        <input type="text" id="messageInput" placeholder="Type a message...">
        <button onclick="sendMessage()">Send</button>
        <button onclick="leaveRoom()">Leave</button>
    </div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');

        function addLine(text, cls, sender) {
            const line = document.createElement('div');
            line.className = cls;
            line.style.margin = '5px 0';
            if (sender) {
                const name = document.createElement('span');
                name.className = 'sender';
                name.textContent = sender + ': ';
                line.appendChild(name);
            }
            line.appendChild(document.createTextNode(text));
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function createRoom() {
            document.getElementById('codeInput').value =
                String(Math.floor(100000 + Math.random() * 900000));
            joinRoom();
        }

        function joinRoom() {
            const name = document.getElementById('nameInput').value.trim();
            const code = document.getElementById('codeInput').value.trim();
            if (!name) { alert('Please enter a display name'); return; }
            if (!/^[0-9]{6}$/.test(code)) { alert('Please enter a valid 6-digit room code'); return; }

            ws = new WebSocket('ws://' + location.host + '/ws/' +
                encodeURIComponent(code) + '/' + encodeURIComponent(name));

            ws.onopen = function() {
                document.getElementById('entry').style.display = 'none';
                document.getElementById('chat').style.display = 'block';
                document.getElementById('roomLabel').textContent = 'Room ' + code;
            };

            ws.onmessage = function(event) {
                const data = JSON.parse(event.data);
                if (data.type === 'message') {
                    addLine(data.message, 'chat', data.name);
                } else if (data.type === 'system') {
                    addLine(data.message, 'system');
                } else if (data.type === 'error') {
                    addLine(data.message, 'error');
                }
            };

            ws.onclose = function() {
                addLine('Disconnected', 'system');
                ws = null;
            };
        }

        function sendMessage() {
            const input = document.getElementById('messageInput');
            const text = input.value;
            if (text.trim() && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ type: 'message', message: text }));
                input.value = '';
            }
        }

        function leaveRoom() {
            if (ws) { ws.close(); }
            document.getElementById('chat').style.display = 'none';
            document.getElementById('entry').style.display = 'block';
            messagesDiv.innerHTML = '';
        }

        document.getElementById('messageInput').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { sendMessage(); }
        });
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
