package session

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opencraft/voxelcore/internal/auth"
	"github.com/opencraft/voxelcore/internal/metrics"
	"github.com/opencraft/voxelcore/internal/proto"
)

// verifyTokenSize is the size of the random nonce vanilla uses in EncryptionRequest.
const verifyTokenSize = 4

func (s *Session) handleLogin(pk *proto.Packet) error {
	switch pk.ID {
	case proto.LoginSBLoginStart:
		return s.handleLoginStart(pk)
	case proto.LoginSBEncryptionResponse:
		return s.handleEncryptionResponse(pk)
	default:
		return fmt.Errorf("session: unexpected login packet %d", pk.ID)
	}
}

func (s *Session) handleLoginStart(pk *proto.Packet) error {
	var name proto.String
	if _, err := name.ReadFrom(pk); err != nil {
		return fmt.Errorf("session: decode LoginStart: %w", err)
	}
	s.profile.Name = string(name)

	if !s.deps.Config.OnlineMode {
		s.profile = auth.OfflineProfile(s.profile.Name)
		return s.finishLogin()
	}

	s.verifyToken = make([]byte, verifyTokenSize)
	if _, err := rand.Read(s.verifyToken); err != nil {
		return fmt.Errorf("session: generate verify token: %w", err)
	}

	pkOut := proto.NewPacket(proto.LoginCBEncryptionRequest,
		proto.String(s.deps.Config.ServerID),
		proto.VarUInt(len(s.deps.Keys.PubDER)),
	)
	pkOut.Write(s.deps.Keys.PubDER)
	_, _ = proto.VarUInt(len(s.verifyToken)).WriteTo(pkOut)
	pkOut.Write(s.verifyToken)

	return s.transport.WritePacket(pkOut)
}

func (s *Session) handleEncryptionResponse(pk *proto.Packet) error {
	var secretLen proto.VarUInt
	if _, err := secretLen.ReadFrom(pk); err != nil {
		return fmt.Errorf("session: decode shared secret length: %w", err)
	}
	encryptedSecret := make([]byte, secretLen)
	if _, err := pk.Read(encryptedSecret); err != nil {
		return fmt.Errorf("session: read shared secret: %w", err)
	}

	var tokenLen proto.VarUInt
	if _, err := tokenLen.ReadFrom(pk); err != nil {
		return fmt.Errorf("session: decode verify token length: %w", err)
	}
	encryptedToken := make([]byte, tokenLen)
	if _, err := pk.Read(encryptedToken); err != nil {
		return fmt.Errorf("session: read verify token: %w", err)
	}

	sharedSecret, err := s.deps.Keys.Decrypt(encryptedSecret)
	if err != nil {
		return fmt.Errorf("session: decrypt shared secret: %w", err)
	}
	verifyToken, err := s.deps.Keys.Decrypt(encryptedToken)
	if err != nil {
		return fmt.Errorf("session: decrypt verify token: %w", err)
	}
	if !bytesEqual(verifyToken, s.verifyToken) {
		metrics.Logins.WithLabelValues("protocol_error").Inc()
		s.loginDisconnect("multiplayer.disconnect.generic")
		return fmt.Errorf("session: verify token mismatch")
	}

	hash := auth.ServerIDHash(s.deps.Config.ServerID, sharedSecret, s.deps.Keys.PubDER)

	clientIP := ""
	if addr := s.conn.RemoteAddr(); addr != nil {
		if tcpAddr, ok := addr.(interface{ String() string }); ok {
			clientIP = hostOnly(tcpAddr.String())
		}
	}

	profile, err := s.deps.SessionServer.HasJoined(s.profile.Name, hash, clientIP)
	if err != nil {
		metrics.Logins.WithLabelValues("auth_failed").Inc()
		if errors.Is(err, auth.ErrNotAuthenticated) {
			s.loginDisconnect("multiplayer.disconnect.unverified_username")
		} else {
			s.loginDisconnect("multiplayer.disconnect.authservers_down")
		}
		return fmt.Errorf("session: session server: %w", err)
	}
	s.profile = profile

	if err := s.transport.EnableEncryption(sharedSecret); err != nil {
		return fmt.Errorf("session: enable encryption: %w", err)
	}

	return s.finishLogin()
}

// finishLogin sends LoginSuccess and transitions to Play, setting the
// negotiated compression threshold per §4.B step 6.
func (s *Session) finishLogin() error {
	if s.deps.Config.CompressionThreshold >= 0 {
		if err := s.transport.WritePacket(proto.NewPacket(proto.LoginCBSetCompression,
			proto.VarUInt(s.deps.Config.CompressionThreshold))); err != nil {
			return err
		}
		s.transport.SetCompressionThreshold(s.deps.Config.CompressionThreshold)
	}

	pk := proto.NewPacket(proto.LoginCBLoginSuccess,
		proto.String(s.profile.UUID.String()),
		proto.String(s.profile.Name),
	)
	if err := s.transport.WritePacket(pk); err != nil {
		return err
	}
	metrics.Logins.WithLabelValues("success").Inc()
	s.state = proto.StatePlay
	return s.beginPlay()
}

// loginDisconnect sends a Disconnect with a translated reason before the
// connection is torn down (§7: user-visible failures get a chat component
// whenever the protocol has a valid channel for one). Best effort; the
// connection is already doomed.
func (s *Session) loginDisconnect(translationKey string) {
	reason, err := json.Marshal(map[string]string{"translate": translationKey})
	if err != nil {
		return
	}
	_ = s.transport.WritePacket(proto.NewPacket(proto.LoginCBDisconnect, proto.String(reason)))
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hostOnly(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
