// Package session implements the Connection session state machine, per
// spec §4.B: Handshake -> {Status | Login} -> Play, driving the encryption
// handshake, authentication, keep-alive, and packet dispatch once in Play.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/opencraft/voxelcore/internal/auth"
	"github.com/opencraft/voxelcore/internal/command"
	"github.com/opencraft/voxelcore/internal/metrics"
	"github.com/opencraft/voxelcore/internal/player"
	"github.com/opencraft/voxelcore/internal/proto"
	"github.com/opencraft/voxelcore/internal/proto/mcrypto"
	"github.com/opencraft/voxelcore/internal/world"
	"github.com/rs/xid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Config is the subset of process configuration a Session needs.
type Config struct {
	OnlineMode           bool
	ViewDistance         int8
	CompressionThreshold int32
	MOTD                 string
	MaxPlayers           int
	ServerID             string // empty string, per vanilla (serverId is unused cryptographically)
}

// Deps are the collaborators shared across every Session spawned by the
// listener: the universe handle, the process RSA keypair, the session-server
// client, and the command graph sent during Play.
type Deps struct {
	Universe      world.UniverseHandle
	Keys          *mcrypto.KeyPair
	SessionServer *auth.SessionServer
	Commands      *command.Graph
	Config        Config
}

// Session owns one client connection end to end: framing/encryption/compression
// (via Transport), the four-phase protocol state machine, and (once in Play)
// the player controller it spawns.
type Session struct {
	conn      net.Conn
	transport *proto.Transport
	state     proto.State
	log       *zap.SugaredLogger
	deps      Deps

	verifyToken []byte

	profile  auth.GameProfile
	entityID int32

	player player.Handle

	pendingTeleportID uint16
	teleportSeq       uint16

	pingInFlight atomic.Uint64
	lastPingSent atomic.Time
	lastPong     atomic.Time
	lastLatency  atomic.Int64 // milliseconds

	keepAlive *keepAliveTicker

	// clock is time.Now outside tests; keep-alive latency bookkeeping reads it
	// so tests can inject a synthetic clock.
	clock func() time.Time

	closed atomic.Bool
}

// New wraps conn in cleartext framing and sets up a Session in Handshake state.
// Each session gets a process-unique id for log correlation.
func New(conn net.Conn, log *zap.SugaredLogger, deps Deps) *Session {
	return &Session{
		conn:      conn,
		transport: proto.NewTransport(conn),
		state:     proto.StateHandshake,
		log:       log.With("session_id", xid.New().String(), "remote_addr", conn.RemoteAddr().String()),
		deps:      deps,
		clock:     time.Now,
	}
}

// SendPacket implements player.ConnHandle and region.ConnHandle, letting the
// world/region/player layers push packets back to this connection without
// depending on the session package.
func (s *Session) SendPacket(pk *proto.Packet) error { return s.transport.WritePacket(pk) }

// Run drives the session's read loop until a fatal error or clean close, then
// tears down the connection and any spawned player controller. It is the
// session's single reader goroutine, per §5 "framed-transport reader and
// writer are separate tasks... joined via a shutdown-coordination task" —
// here collapsed to one goroutine per session since writes go through
// Transport's own internal mutex rather than a second goroutine.
func (s *Session) Run() {
	metrics.ConnectionsOpen.Inc()
	defer s.teardown()
	for {
		pk, err := s.transport.ReadPacket()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debugw("session closed", "state", s.state.String(), "error", err)
			}
			return
		}
		if !proto.IsKnownServerbound(s.state, pk.ID) {
			s.log.Debugw("unknown packet for state", "state", s.state.String(), "packet_id", pk.ID)
			return
		}
		if err := s.dispatch(pk); err != nil {
			if !errors.Is(err, errStatusComplete) {
				s.log.Debugw("fatal protocol error", "state", s.state.String(), "error", err)
			}
			return
		}
	}
}

func (s *Session) teardown() {
	if s.closed.Swap(true) {
		return
	}
	metrics.ConnectionsOpen.Dec()
	if s.keepAlive != nil {
		s.keepAlive.Stop()
	}
	spawned := (player.Handle{}) != s.player
	if spawned {
		done := make(chan struct{})
		s.player.Stop(done)
		<-done
		metrics.PlayersOnline.Dec()
		// Per §7: when an entity actor terminates, the universe reclaims its id.
		s.deps.Universe.FreeEntityID(s.entityID)
	}
	_ = s.transport.Close()
}

// errStatusComplete signals the deterministic post-Pong close; not a failure.
var errStatusComplete = errors.New("session: status sequence complete")

func (s *Session) dispatch(pk *proto.Packet) error {
	switch s.state {
	case proto.StateHandshake:
		return s.handleHandshake(pk)
	case proto.StateStatus:
		return s.handleStatus(pk)
	case proto.StateLogin:
		return s.handleLogin(pk)
	case proto.StatePlay:
		return s.handlePlay(pk)
	default:
		return fmt.Errorf("session: unreachable state %v", s.state)
	}
}

func (s *Session) handleHandshake(pk *proto.Packet) error {
	if pk.ID != proto.HandshakeSBHandshake {
		return fmt.Errorf("session: expected Handshake packet, got %d", pk.ID)
	}
	var protocolVersion proto.VarUInt
	var addr proto.String
	var port proto.UnsignedShort
	var nextState proto.VarUInt
	for _, f := range []io.ReaderFrom{&protocolVersion, &addr, &port, &nextState} {
		if _, err := f.ReadFrom(pk); err != nil {
			return fmt.Errorf("session: decode handshake: %w", err)
		}
	}

	switch nextState {
	case 1:
		s.state = proto.StateStatus
	case 2:
		s.state = proto.StateLogin
	default:
		return fmt.Errorf("session: invalid handshake next_state %d", nextState)
	}
	return nil
}

// statusResponse is the JSON document answering a Status Request.
type statusResponse struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
}

// protocolVersion is Minecraft Java Edition protocol 578 (game version 1.15.2).
const protocolVersion = 578

func (s *Session) handleStatus(pk *proto.Packet) error {
	switch pk.ID {
	case proto.StatusSBRequest:
		resp := statusResponse{}
		resp.Version.Name = "1.15.2"
		resp.Version.Protocol = protocolVersion
		resp.Players.Max = s.deps.Config.MaxPlayers
		if resp.Players.Max == 0 {
			resp.Players.Max = 20
		}
		resp.Description.Text = s.deps.Config.MOTD
		body, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("session: marshal status response: %w", err)
		}
		return s.transport.WritePacket(proto.NewPacket(proto.StatusCBResponse, proto.String(body)))

	case proto.StatusSBPing:
		var payload proto.Long
		if _, err := payload.ReadFrom(pk); err != nil {
			return fmt.Errorf("session: decode ping: %w", err)
		}
		if err := s.transport.WritePacket(proto.NewPacket(proto.StatusCBPong, payload)); err != nil {
			return err
		}
		// Per §4.B: the connection closes deterministically after Pong.
		return errStatusComplete

	default:
		return fmt.Errorf("session: unexpected status packet %d", pk.ID)
	}
}
