package nostrelay

import (
	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"
)

// WebSocket serializes writes to a connection, gorilla allows only one concurrent writer.
type WebSocket struct {
	conn  *websocket.Conn
	mutex deadlock.Mutex
}

func (ws *WebSocket) WriteJSON(any interface{}) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	if err := ws.conn.SetWriteDeadline(timeNow().Add(writeWait)); err != nil {
		return err
	}
	return ws.conn.WriteJSON(any)
}

func (ws *WebSocket) WriteMessage(t int, b []byte) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	if err := ws.conn.SetWriteDeadline(timeNow().Add(writeWait)); err != nil {
		return err
	}
	return ws.conn.WriteMessage(t, b)
}
