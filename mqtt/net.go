// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/packets"
	"github.com/gorilla/websocket"
)

// ConnectionProvider returns a net.Conn connected to an MQTT server that is
// ready to read from and write to. The returned net.Conn must be safe for
// concurrent writes.
type ConnectionProvider func(context.Context) (net.Conn, error)

// TCPConnection connects to an MQTT server over plain TCP.
func TCPConnection(hostname string, port uint16) ConnectionProvider {
	return func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", hostPort(hostname, port))
		if err != nil {
			return nil, &ConnectionError{
				message: "error opening TCP connection",
				wrapped: err,
			}
		}
		return packets.NewThreadSafeConn(conn), nil
	}
}

// TLSConnection connects to an MQTT server with TLS over TCP. A nil config
// uses the zero configuration.
func TLSConnection(
	hostname string,
	port uint16,
	config *tls.Config,
) ConnectionProvider {
	return func(ctx context.Context) (net.Conn, error) {
		d := tls.Dialer{Config: config}
		conn, err := d.DialContext(ctx, "tcp", hostPort(hostname, port))
		if err != nil {
			return nil, &ConnectionError{
				message: "error opening TLS connection",
				wrapped: err,
			}
		}
		return packets.NewThreadSafeConn(conn), nil
	}
}

// WebSocketConnection connects to an MQTT server over WebSockets, using wss
// when config is non-nil. The path defaults to /mqtt.
func WebSocketConnection(
	hostname string,
	port uint16,
	path string,
	config *tls.Config,
) ConnectionProvider {
	scheme := "ws"
	if config != nil {
		scheme = "wss"
	}
	if path == "" {
		path = "/mqtt"
	}
	u := url.URL{Scheme: scheme, Host: hostPort(hostname, port), Path: path}

	return func(ctx context.Context) (net.Conn, error) {
		d := websocket.Dialer{
			Subprotocols:    []string{"mqtt"},
			TLSClientConfig: config,
		}
		ws, _, err := d.DialContext(ctx, u.String(), nil)
		if err != nil {
			return nil, &ConnectionError{
				message: fmt.Sprintf("error opening WebSocket connection to %s", u.String()),
				wrapped: err,
			}
		}
		return &wsConn{ws: ws}, nil
	}
}

func hostPort(hostname string, port uint16) string {
	return net.JoinHostPort(hostname, strconv.Itoa(int(port)))
}

// wsConn presents a WebSocket as a byte stream. MQTT packets may span
// WebSocket messages and vice versa.
type wsConn struct {
	ws      *websocket.Conn
	r       io.Reader
	readMu  sync.Mutex
	writeMu sync.Mutex
}

func (c *wsConn) Read(b []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for {
		if c.r == nil {
			typ, r, err := c.ws.NextReader()
			if err != nil {
				return 0, err
			}
			if typ != websocket.BinaryMessage {
				continue
			}
			c.r = r
		}

		n, err := c.r.Read(b)
		if err == io.EOF {
			c.r = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (c *wsConn) Write(b []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

func (c *wsConn) LocalAddr() net.Addr {
	return c.ws.LocalAddr()
}

func (c *wsConn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

func (c *wsConn) SetWriteDeadline(t time.Time) error {
	return c.ws.SetWriteDeadline(t)
}
