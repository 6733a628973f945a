package server

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// clientConn abstracts one line-per-message transport. TCP clients speak
// newline-delimited JSON; WebSocket clients send the same JSON one message
// per frame.
type clientConn interface {
	ReadLine() ([]byte, error)
	WriteLine(data []byte) error
	SetReadDeadline(t time.Time) error
	RemoteAddr() string
	Close() error
}

type tcpConn struct {
	raw     net.Conn
	reader  *bufio.Reader
	writeMu sync.Mutex
}

func newTCPConn(raw net.Conn) *tcpConn {
	return &tcpConn{
		raw:    raw,
		reader: bufio.NewReader(raw),
	}
}

func (c *tcpConn) ReadLine() ([]byte, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (c *tcpConn) WriteLine(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.raw.Write(data)
	return err
}

func (c *tcpConn) SetReadDeadline(t time.Time) error {
	return c.raw.SetReadDeadline(t)
}

func (c *tcpConn) RemoteAddr() string {
	return c.raw.RemoteAddr().String()
}

func (c *tcpConn) Close() error {
	return c.raw.Close()
}

type wsConn struct {
	raw     *websocket.Conn
	writeMu sync.Mutex
}

func newWSConn(raw *websocket.Conn) *wsConn {
	return &wsConn{raw: raw}
}

func (c *wsConn) ReadLine() ([]byte, error) {
	_, data, err := c.raw.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *wsConn) WriteLine(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.raw.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.raw.SetReadDeadline(t)
}

func (c *wsConn) RemoteAddr() string {
	return c.raw.RemoteAddr().String()
}

func (c *wsConn) Close() error {
	return c.raw.Close()
}
