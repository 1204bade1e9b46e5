// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

// Package opcua reads typed values from OPC UA servers. Sessions are pooled
// per endpoint and evicted on any read failure so the next read reconnects.
package opcua

import (
	"context"
	"sync"
	"time"

	gopcua "github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/util/log"
)

// Session is the subset of the OPC UA client the service needs. It exists so
// tests can substitute a fake transport.
type Session interface {
	Read(ctx context.Context, req *ua.ReadRequest) (*ua.ReadResponse, error)
	Close(ctx context.Context) error
}

// ConnParams describes how to reach and authenticate against a server.
type ConnParams struct {
	Endpoint       string
	SecurityPolicy string // None, Basic128Rsa15, Basic256, Basic256Sha256
	SecurityMode   string // None, Sign, SignAndEncrypt
	Username       string
	Password       string
	Timeout        time.Duration
}

// DialFunc opens a session against an already-normalized endpoint.
type DialFunc func(ctx context.Context, params ConnParams) (Session, error)

// DefaultDial discovers the server's endpoints, picks the one matching the
// requested security settings and connects with the configured identity.
func DefaultDial(ctx context.Context, params ConnParams) (Session, error) {
	endpoint := NormalizeEndpoint(params.Endpoint)

	policy := params.SecurityPolicy
	if policy == "" {
		policy = "None"
	}
	mode := params.SecurityMode
	if mode == "" {
		mode = "None"
	}

	opts := []gopcua.Option{
		gopcua.SecurityPolicy(policy),
		gopcua.SecurityModeString(mode),
	}

	endpoints, err := gopcua.GetEndpoints(ctx, endpoint)
	if err == nil {
		if ep := gopcua.SelectEndpoint(endpoints, policy, ua.MessageSecurityModeFromString(mode)); ep != nil {
			// Servers often advertise addresses that are unreachable from
			// the client's network.
			ep.EndpointURL = rewriteAdvertisedURL(ep.EndpointURL, endpoint)
			if params.Username != "" {
				opts = append(opts, gopcua.SecurityFromEndpoint(ep, ua.UserTokenTypeUserName))
			} else {
				opts = append(opts, gopcua.SecurityFromEndpoint(ep, ua.UserTokenTypeAnonymous))
			}
		}
	}

	if params.Username != "" {
		opts = append(opts, gopcua.AuthUsername(params.Username, params.Password))
	} else {
		opts = append(opts, gopcua.AuthAnonymous())
	}

	client := gopcua.NewClient(endpoint, opts...)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// pooledSession serializes all traffic for one endpoint.
type pooledSession struct {
	mu      sync.Mutex
	session Session
}

// Service is the process-wide OPC UA session pool.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*pooledSession
	dial     DialFunc

	nodeMu  sync.RWMutex
	nodeIDs map[string]*ua.NodeID
}

// NewService returns a Service dialing real OPC UA sessions.
func NewService() *Service {
	return NewServiceWithDial(DefaultDial)
}

// NewServiceWithDial returns a Service with a custom dialer; used by tests.
func NewServiceWithDial(dial DialFunc) *Service {
	return &Service{
		sessions: make(map[string]*pooledSession),
		dial:     dial,
		nodeIDs:  make(map[string]*ua.NodeID),
	}
}

// parseNodeID parses and caches a node ID string like "ns=2;i=1001".
func (s *Service) parseNodeID(nodeID string) (*ua.NodeID, error) {
	s.nodeMu.RLock()
	id, ok := s.nodeIDs[nodeID]
	s.nodeMu.RUnlock()
	if ok {
		return id, nil
	}

	id, err := ua.ParseNodeID(nodeID)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigError, err, "parse node id %q", nodeID)
	}

	s.nodeMu.Lock()
	s.nodeIDs[nodeID] = id
	s.nodeMu.Unlock()
	return id, nil
}

// session returns the pooled session for the endpoint, dialing if absent.
func (s *Service) session(ctx context.Context, params ConnParams) (*pooledSession, error) {
	key := NormalizeEndpoint(params.Endpoint)

	s.mu.Lock()
	if ps, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		return ps, nil
	}
	sess, err := s.dial(ctx, params)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	ps := &pooledSession{session: sess}
	s.sessions[key] = ps
	s.mu.Unlock()

	log.Infof("opcua connected to %s", key)
	return ps, nil
}

// evict closes and removes the session so the next call reconnects.
func (s *Service) evict(endpoint string) {
	key := NormalizeEndpoint(endpoint)

	s.mu.Lock()
	ps, ok := s.sessions[key]
	if ok {
		delete(s.sessions, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := ps.session.Close(context.Background()); err != nil {
		log.Warnf("opcua close %s: %v", key, err) //nolint:errcheck
	} else {
		log.Infof("opcua disconnected from %s", key)
	}
}

// read issues one ReadRequest on the pooled session, evicting on failure.
func (s *Service) read(ctx context.Context, params ConnParams, req *ua.ReadRequest) (*ua.ReadResponse, error) {
	ps, err := s.session(ctx, params)
	if err != nil {
		return nil, errs.Wrap(errs.TransportError, err, "connect %s", params.Endpoint)
	}

	ps.mu.Lock()
	resp, err := ps.session.Read(ctx, req)
	ps.mu.Unlock()
	if err != nil {
		s.evict(params.Endpoint)
		return nil, errs.Wrap(errs.TransportError, err, "read %s", params.Endpoint)
	}
	return resp, nil
}

// ReadValue reads one node and converts it to the schema data type.
func (s *Service) ReadValue(ctx context.Context, params ConnParams, nodeID, dataType string, scale float64) (interface{}, error) {
	id, err := s.parseNodeID(nodeID)
	if err != nil {
		return nil, err
	}

	resp, err := s.read(ctx, params, &ua.ReadRequest{
		MaxAge:             0,
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead:        []*ua.ReadValueID{{NodeID: id}},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, errs.New(errs.DecodeError, "empty read response for %s", nodeID)
	}

	dv := resp.Results[0]
	if dv.Status != ua.StatusOK {
		return nil, errs.New(errs.DecodeError, "node %s status %s", nodeID, dv.Status)
	}
	if dv.Value == nil {
		return nil, errs.New(errs.DecodeError, "node %s has no value", nodeID)
	}
	return convertValue(dv.Value.Value(), dataType, scale)
}

// ReadMultiple reads several nodes in a single request, returning raw values
// keyed by node ID. Nodes with a bad status map to nil.
func (s *Service) ReadMultiple(ctx context.Context, params ConnParams, nodeIDs []string) (map[string]interface{}, error) {
	if len(nodeIDs) == 0 {
		return map[string]interface{}{}, nil
	}

	toRead := make([]*ua.ReadValueID, 0, len(nodeIDs))
	for _, n := range nodeIDs {
		id, err := s.parseNodeID(n)
		if err != nil {
			return nil, err
		}
		toRead = append(toRead, &ua.ReadValueID{NodeID: id})
	}

	resp, err := s.read(ctx, params, &ua.ReadRequest{
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead:        toRead,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != len(nodeIDs) {
		return nil, errs.New(errs.DecodeError, "read %d nodes, got %d results", len(nodeIDs), len(resp.Results))
	}

	values := make(map[string]interface{}, len(nodeIDs))
	for i, n := range nodeIDs {
		dv := resp.Results[i]
		if dv.Status != ua.StatusOK || dv.Value == nil {
			values[n] = nil
			continue
		}
		values[n] = dv.Value.Value()
	}
	return values, nil
}

// TestConnection opens a throwaway session, reads the server status node and
// reports (ok, latency in ms, error message, value read). The pooled session
// is not touched.
func (s *Service) TestConnection(ctx context.Context, params ConnParams) (bool, int64, string, interface{}) {
	start := time.Now()

	sess, err := s.dial(ctx, params)
	if err != nil {
		return false, time.Since(start).Milliseconds(), err.Error(), nil
	}
	defer sess.Close(context.Background()) //nolint:errcheck

	// i=2258 is Server_ServerStatus_CurrentTime, readable on any server.
	id := ua.NewNumericNodeID(0, 2258)
	resp, err := sess.Read(ctx, &ua.ReadRequest{
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead:        []*ua.ReadValueID{{NodeID: id}},
	})
	if err != nil {
		return false, time.Since(start).Milliseconds(), err.Error(), nil
	}

	var value interface{}
	if len(resp.Results) > 0 && resp.Results[0].Status == ua.StatusOK && resp.Results[0].Value != nil {
		value = resp.Results[0].Value.Value()
	}
	return true, time.Since(start).Milliseconds(), "", value
}

// Disconnect explicitly closes the pooled session for an endpoint.
func (s *Service) Disconnect(endpoint string) {
	s.evict(endpoint)
}

// DisconnectAll closes every pooled session.
func (s *Service) DisconnectAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*pooledSession)
	s.mu.Unlock()

	for key, ps := range sessions {
		if err := ps.session.Close(context.Background()); err != nil {
			log.Warnf("opcua close %s: %v", key, err) //nolint:errcheck
		}
	}
}
