// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package brokertest runs an in-process MQTT broker for tests.
package brokertest

import (
	"net"
	"strconv"
	"testing"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/require"
)

// Credentials accepted by brokers started with WithAuth.
const (
	Username = "gary"
	Password = "pineapple"
)

// Broker is a running in-process broker.
type Broker struct {
	Server  *mochi.Server
	Host    string
	TCPPort uint16
	WSPort  uint16
}

// Start serves a broker on free TCP and WebSocket ports until the test ends.
// With auth set, only Username and Password are accepted.
func Start(t *testing.T, withAuth bool) *Broker {
	t.Helper()

	server := mochi.New(nil)
	if withAuth {
		require.NoError(t, server.AddHook(new(auth.Hook), &auth.Options{
			Ledger: &auth.Ledger{
				// Auth disallows all by default.
				Auth: auth.AuthRules{{
					Username: auth.RString(Username),
					Password: auth.RString(Password),
					Allow:    true,
				}},
			},
		}))
	} else {
		require.NoError(t, server.AddHook(new(auth.AllowHook), nil))
	}

	tcpAddr := freeAddress(t)
	wsAddr := freeAddress(t)

	require.NoError(t, server.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		ID:      "tcp",
		Address: tcpAddr,
	})))
	require.NoError(t, server.AddListener(listeners.NewWebsocket(
		listeners.Config{
			Type:    "ws",
			ID:      "ws",
			Address: wsAddr,
		},
	)))
	require.NoError(t, server.Serve())
	t.Cleanup(func() { _ = server.Close() })

	return &Broker{
		Server:  server,
		Host:    "127.0.0.1",
		TCPPort: port(t, tcpAddr),
		WSPort:  port(t, wsAddr),
	}
}

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func port(t *testing.T, addr string) uint16 {
	t.Helper()
	_, p, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	n, err := strconv.ParseUint(p, 10, 16)
	require.NoError(t, err)
	return uint16(n)
}
