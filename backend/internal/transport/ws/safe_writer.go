package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrWriterClosed запись в уже закрытое соединение
var ErrWriterClosed = errors.New("websocket writer closed")

const defaultWriteTimeout = 5 * time.Second

// SafeWriter сериализует запись в одно WebSocket соединение.
// Рассылки из игрового цикла и ответы из HandleWS пишут в него параллельно.
type SafeWriter struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// NewSafeWriter оборачивает соединение
func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{conn: conn}
}

// WriteJSON записывает v как текстовый JSON кадр
func (w *SafeWriter) WriteJSON(v interface{}) error {
	return w.write(func() error { return w.conn.WriteJSON(v) })
}

// WriteMessage записывает готовый кадр, например заранее сериализованную рассылку
func (w *SafeWriter) WriteMessage(messageType int, data []byte) error {
	return w.write(func() error { return w.conn.WriteMessage(messageType, data) })
}

func (w *SafeWriter) write(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	return fn()
}

// Close закрывает соединение. Повторный вызов ничего не делает.
func (w *SafeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.conn.Close()
}
