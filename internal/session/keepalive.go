package session

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/opencraft/voxelcore/internal/proto"
)

// keepAliveInterval and keepAliveTimeout implement §4.B's keep-alive protocol:
// a KeepAlive is sent every 20s; no matching response within 30s is fatal.
const (
	keepAliveInterval = 20 * time.Second
	keepAliveTimeout  = 30 * time.Second
)

// keepAliveTicker is the dedicated periodic task driving keep-alive, per the
// design note "keep-alive and tick scheduling are periodic cooperative loops,
// implemented as dedicated tasks" — it never touches session state directly
// beyond the atomics session.go exposes for exactly this purpose.
type keepAliveTicker struct {
	s    *Session
	stop chan struct{}
}

func newKeepAliveTicker(s *Session) *keepAliveTicker {
	return &keepAliveTicker{s: s, stop: make(chan struct{})}
}

func (k *keepAliveTicker) Stop() {
	select {
	case <-k.stop:
	default:
		close(k.stop)
	}
}

func (k *keepAliveTicker) Run() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-k.stop:
			return
		case <-ticker.C:
			if !k.fire() {
				return
			}
		}
	}
}

// fire checks whether the outstanding KeepAlive (if any) has gone unanswered
// past the timeout, and otherwise sends a new one once the previous one was
// answered; while a ping is still outstanding and within the timeout it sends
// nothing. Returns false to end the loop and let the caller tear down the
// connection.
func (k *keepAliveTicker) fire() bool {
	s := k.s
	if s.pingInFlight.Load() != 0 {
		lastSent := s.lastPingSent.Load()
		lastPong := s.lastPong.Load()
		if lastPong.Before(lastSent) && s.clock().Sub(lastSent) > keepAliveTimeout {
			s.log.Debugw("keep-alive timeout", "entity_id", s.entityID)
			_ = s.transport.Close()
			return false
		}
		// Keep waiting on the outstanding ping rather than replacing it, so
		// its send time stays the one the timeout is measured from.
		return true
	}

	var idBytes [8]byte
	if _, err := rand.Read(idBytes[:]); err != nil {
		return true
	}
	id := binary.BigEndian.Uint64(idBytes[:])
	if id == 0 {
		id = 1
	}
	s.pingInFlight.Store(id)
	s.lastPingSent.Store(s.clock())

	if err := s.transport.WritePacket(proto.NewPacket(proto.PlayCBKeepAlive, proto.UnsignedLong(id))); err != nil {
		return false
	}
	return true
}

func (s *Session) handleKeepAliveResponse(pk *proto.Packet) error {
	var id proto.UnsignedLong
	if _, err := id.ReadFrom(pk); err != nil {
		return err
	}
	if uint64(id) == s.pingInFlight.Load() {
		now := s.clock()
		s.lastPong.Store(now)
		s.lastLatency.Store(now.Sub(s.lastPingSent.Load()).Milliseconds())
		s.pingInFlight.Store(0)
	}
	return nil
}
