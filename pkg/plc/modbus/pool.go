// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package modbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	modbus "github.com/aldas/go-modbus-client"
	"github.com/aldas/go-modbus-client/packet"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/util/log"
)

// Conn is the subset of the Modbus TCP client the service needs. It exists so
// tests can substitute a fake transport.
type Conn interface {
	Do(ctx context.Context, req packet.Request) (packet.Response, error)
	Close() error
}

// ConnectFunc opens a Modbus TCP connection to host:port.
type ConnectFunc func(ctx context.Context, host string, port int, timeout time.Duration) (Conn, error)

// DefaultConnect dials a Modbus TCP server with symmetric read/write timeouts.
func DefaultConnect(ctx context.Context, host string, port int, timeout time.Duration) (Conn, error) {
	client := modbus.NewTCPClientWithConfig(modbus.ClientConfig{
		WriteTimeout: timeout,
		ReadTimeout:  timeout,
	})
	addr := fmt.Sprintf("tcp://%s:%d", host, port)
	if err := client.Connect(ctx, addr); err != nil {
		return nil, err
	}
	return client, nil
}

// pooledConn serializes all traffic for one (host,port). Modbus/TCP is a
// request/response protocol on a single socket; interleaved writers would
// corrupt the stream.
type pooledConn struct {
	mu   sync.Mutex
	conn Conn
}

func poolKey(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// client returns the pooled connection for (host,port), dialing if absent.
func (s *Service) client(ctx context.Context, host string, port int, timeout time.Duration) (*pooledConn, error) {
	key := poolKey(host, port)

	s.mu.Lock()
	if pc, ok := s.clients[key]; ok {
		s.mu.Unlock()
		return pc, nil
	}
	// Hold the pool lock while dialing so concurrent readers of the same
	// device do not open duplicate sockets.
	conn, err := s.connect(ctx, host, port, timeout)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	pc := &pooledConn{conn: conn}
	s.clients[key] = pc
	s.mu.Unlock()

	log.Infof("modbus connected to %s", key)
	return pc, nil
}

// evict closes and removes the connection for (host,port) so the next call
// reconnects.
func (s *Service) evict(host string, port int) {
	key := poolKey(host, port)

	s.mu.Lock()
	pc, ok := s.clients[key]
	if ok {
		delete(s.clients, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := pc.conn.Close(); err != nil {
		log.Warnf("modbus close %s: %v", key, err) //nolint:errcheck
	} else {
		log.Infof("modbus disconnected from %s", key)
	}
}

// Disconnect explicitly closes the pooled connection for a device.
func (s *Service) Disconnect(host string, port int) {
	s.evict(host, port)
}

// DisconnectAll closes every pooled connection.
func (s *Service) DisconnectAll() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*pooledConn)
	s.mu.Unlock()

	for key, pc := range clients {
		if err := pc.conn.Close(); err != nil {
			log.Warnf("modbus close %s: %v", key, err) //nolint:errcheck
		}
	}
}
