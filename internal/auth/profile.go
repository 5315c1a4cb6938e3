// Package auth implements the Login-phase collaborators: the offline-mode profile
// synthesizer, the vanilla server-id SHA-1 digest convention, and the Mojang
// session-server HTTP client used to confirm a profile in online mode.
package auth

import (
	"crypto/sha1"
	"fmt"

	"github.com/google/uuid"
)

// offlinePlayerNamespace is the namespace used to derive a deterministic v3 UUID
// for offline-mode players, matching vanilla's "OfflinePlayer:<name>" convention
// (OID namespace, per RFC 4122).
var offlinePlayerNamespace = uuid.NameSpaceOID

// Property is a single signed (or unsigned) game-profile property, e.g. "textures".
type Property struct {
	Name      string
	Value     string
	Signature string // empty if unsigned
}

// GameProfile identifies a player: a stable uuid, their current username, and any
// signed properties (skin/cape textures) attached by the session server.
type GameProfile struct {
	UUID       uuid.UUID
	Name       string
	Properties []Property
}

// OfflineProfile synthesizes a deterministic profile for offline (non-authenticated)
// mode: a v3 (namespace-MD5) uuid derived from "OfflinePlayer:<name>".
func OfflineProfile(name string) GameProfile {
	id := uuid.NewMD5(offlinePlayerNamespace, []byte("OfflinePlayer:"+name))
	// NewMD5 returns a v3-shaped UUID already (version nibble set); no further masking needed.
	return GameProfile{UUID: id, Name: name}
}

// ServerIDHash computes the vanilla "Notch digest" used as the serverId query
// parameter to the Mojang session-server hasJoined endpoint: SHA-1 over
// serverID || sharedSecret || publicKeyDER, rendered as a signed hex string using
// the two's-complement-if-high-bit-set, strip-leading-zeros convention.
func ServerIDHash(serverID string, sharedSecret, publicKeyDER []byte) string {
	h := sha1.New()
	h.Write([]byte(serverID))
	h.Write(sharedSecret)
	h.Write(publicKeyDER)
	return notchDigest(h.Sum(nil))
}

// notchDigest renders a 20-byte SHA-1 digest as vanilla does: treat it as a
// two's-complement big integer (negative if the high bit of the first byte is
// set), negate in place when negative, and hex-encode without leading zeros,
// prefixing a '-' for negative values.
func notchDigest(sum []byte) string {
	negative := sum[0]&0x80 != 0
	if negative {
		twosComplement(sum)
	}

	hex := trimLeadingZeroHex(sum)
	if negative {
		return "-" + hex
	}
	return hex
}

func twosComplement(b []byte) {
	carry := true
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = ^b[i]
		if carry {
			b[i]++
			carry = b[i] == 0
		}
	}
}

func trimLeadingZeroHex(b []byte) string {
	s := fmt.Sprintf("%x", b)
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}
