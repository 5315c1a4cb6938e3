package session

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/opencraft/voxelcore/internal/proto"
	"go.uber.org/zap"
)

// TestStatusHandshakeScenario drives spec scenario 1 end to end: Handshake
// (next_state=1), Request, Ping(0xDEADBEEF) must yield a Response whose
// version.protocol is 578 and a Pong echoing the same value, then the
// connection closes.
func TestStatusHandshakeScenario(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	log := zap.NewNop().Sugar()
	s := New(serverConn, log, Deps{})
	go s.Run()

	client := proto.NewTransport(clientConn)

	handshake := proto.NewPacket(proto.HandshakeSBHandshake,
		proto.VarUInt(578), proto.String("localhost"), proto.UnsignedShort(25565), proto.VarUInt(1))
	if err := client.WritePacket(handshake); err != nil {
		t.Fatalf("write handshake: %v", err)
	}

	// Request and its Response/Ping and its Pong are each written then read
	// immediately: net.Pipe is unbuffered and fully synchronous, so the
	// server's reply write blocks until this goroutine reads it — batching
	// writes ahead of reads here would deadlock against the server goroutine.
	if err := client.WritePacket(proto.NewPacket(proto.StatusSBRequest)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	respPk, err := client.ReadPacket()
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if respPk.ID != proto.StatusCBResponse {
		t.Fatalf("got packet id %d, want StatusCBResponse", respPk.ID)
	}
	var body proto.String
	if _, err := body.ReadFrom(respPk); err != nil {
		t.Fatalf("decode response string: %v", err)
	}
	var doc struct {
		Version struct {
			Protocol int `json:"protocol"`
		} `json:"version"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatalf("unmarshal status json: %v", err)
	}
	if doc.Version.Protocol != 578 {
		t.Fatalf("protocol = %d, want 578", doc.Version.Protocol)
	}

	const pingValue = int64(0xDEADBEEF)
	if err := client.WritePacket(proto.NewPacket(proto.StatusSBPing, proto.Long(pingValue))); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	pongPk, err := client.ReadPacket()
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pongPk.ID != proto.StatusCBPong {
		t.Fatalf("got packet id %d, want StatusCBPong", pongPk.ID)
	}
	var echoed proto.Long
	if _, err := echoed.ReadFrom(pongPk); err != nil {
		t.Fatalf("decode pong: %v", err)
	}
	if int64(echoed) != pingValue {
		t.Fatalf("pong value = %#x, want %#x", int64(echoed), pingValue)
	}

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.ReadPacket(); err == nil {
		t.Fatalf("expected connection to close after Pong, read succeeded")
	}
}
