package opcua

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"github.com/rs/zerolog"
	"github.com/savushkin-dev/scada-gateway/internal/domain"
	"github.com/sony/gobreaker"
)

// Session is an established connection to one OPC UA server. It implements
// domain.Session. Reads from concurrent tag loops are safe: the underlying
// secure channel serializes requests, and a shared circuit breaker makes a
// dead endpoint fail fast instead of letting every loop block on it.
type Session struct {
	serverID  string
	client    *opcua.Client
	breaker   *gobreaker.CircuitBreaker
	logger    zerolog.Logger
	closed    atomic.Bool
	closeOnce sync.Once

	nodeCacheMu sync.RWMutex
	nodeCache   map[string]*ua.NodeID
}

func newSession(serverID string, client *opcua.Client, config DialerConfig, logger zerolog.Logger) *Session {
	threshold := config.BreakerThreshold
	return &Session{
		serverID: serverID,
		client:   client,
		logger:   logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "opcua-read-" + serverID,
			MaxRequests: config.BreakerMaxRequests,
			Interval:    config.BreakerInterval,
			Timeout:     config.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
		nodeCache: make(map[string]*ua.NodeID),
	}
}

// Read samples one node. A transport failure (including an open breaker)
// returns an error wrapping domain.ErrReadFailed. A completed read with a
// bad status code returns a sample with Good=false and no error.
func (s *Session) Read(ctx context.Context, nodeIDStr string) (domain.RawSample, error) {
	if s.closed.Load() {
		return domain.RawSample{}, domain.ErrSessionClosed
	}

	nodeID, err := s.getNodeID(nodeIDStr)
	if err != nil {
		return domain.RawSample{}, err
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.readNode(ctx, nodeID)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return domain.RawSample{}, fmt.Errorf("%w: %v", domain.ErrReadFailed, err)
		}
		return domain.RawSample{}, err
	}

	return result.(domain.RawSample), nil
}

// readNode issues the wire read for a single node.
func (s *Session) readNode(ctx context.Context, nodeID *ua.NodeID) (domain.RawSample, error) {
	req := &ua.ReadRequest{
		MaxAge:             0,
		TimestampsToReturn: ua.TimestampsToReturnBoth,
		NodesToRead: []*ua.ReadValueID{
			{
				NodeID:       nodeID,
				AttributeID:  ua.AttributeIDValue,
				DataEncoding: &ua.QualifiedName{},
			},
		},
	}

	resp, err := s.client.Read(ctx, req)
	if err != nil {
		return domain.RawSample{}, fmt.Errorf("%w: %v", domain.ErrReadFailed, err)
	}
	if len(resp.Results) == 0 {
		return domain.RawSample{}, fmt.Errorf("%w: no results returned", domain.ErrReadFailed)
	}

	result := resp.Results[0]
	sample := domain.RawSample{
		Good:            statusGood(result.Status),
		SourceTimestamp: result.SourceTimestamp,
	}
	if result.Value != nil {
		sample.Value = result.Value.Value()
	}
	return sample, nil
}

// Close releases the connection. Idempotent; reads after Close fail with
// domain.ErrSessionClosed.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if closeErr := s.client.Close(context.Background()); closeErr != nil {
			s.logger.Warn().Err(closeErr).Msg("Error closing OPC UA connection")
			err = closeErr
		} else {
			s.logger.Debug().Msg("Disconnected from OPC UA server")
		}
	})
	return err
}

// ServerID returns the server this session is connected to.
func (s *Session) ServerID() string {
	return s.serverID
}

// getNodeID parses and caches a node ID.
func (s *Session) getNodeID(nodeIDStr string) (*ua.NodeID, error) {
	s.nodeCacheMu.RLock()
	nodeID, ok := s.nodeCache[nodeIDStr]
	s.nodeCacheMu.RUnlock()
	if ok {
		return nodeID, nil
	}

	nodeID, err := ua.ParseNodeID(nodeIDStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidNodeID, nodeIDStr, err)
	}

	s.nodeCacheMu.Lock()
	s.nodeCache[nodeIDStr] = nodeID
	s.nodeCacheMu.Unlock()

	return nodeID, nil
}

// statusGood maps an OPC UA status code to the binary quality flag.
// Bad codes have bit 31 set, uncertain codes bit 30; both count as bad.
func statusGood(status ua.StatusCode) bool {
	return status&0xC0000000 == 0
}
