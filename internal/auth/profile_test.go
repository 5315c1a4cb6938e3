package auth

import (
	"crypto/sha1"
	"testing"
)

// digestOf mirrors the vanilla single-input test vectors: SHA-1 of the bare
// string, rendered with the same signed-hex convention ServerIDHash uses.
func digestOf(s string) string {
	sum := sha1.Sum([]byte(s))
	return notchDigest(sum[:])
}

func TestNotchDigestVectors(t *testing.T) {
	cases := map[string]string{
		"jeb_":  "-7c9d5b0044c130109a5d7b5fb5c317c02b4e28c1",
		"Notch": "4ed1f46bbe04bc756bcb17c0c7ce3e4632f06a48",
		"simon": "88e16a1019277b15d58faf0541e11910eb756f6",
	}
	for input, want := range cases {
		if got := digestOf(input); got != want {
			t.Errorf("digestOf(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestOfflineProfileDeterministic(t *testing.T) {
	a := OfflineProfile("Steve")
	b := OfflineProfile("Steve")
	if a.UUID != b.UUID {
		t.Fatalf("offline uuid not deterministic: %v != %v", a.UUID, b.UUID)
	}
	other := OfflineProfile("Alex")
	if a.UUID == other.UUID {
		t.Fatal("different names produced the same offline uuid")
	}
}

// TestOfflineProfileKnownUUIDs pins the exact v3 (OID-namespace) values so a
// wrong namespace or seed string cannot slip through the determinism check.
func TestOfflineProfileKnownUUIDs(t *testing.T) {
	cases := map[string]string{
		"Steve": "c0a391a6-070b-3ca8-8647-24919f87cf40",
		"Notch": "4a374dda-2ae7-3d29-9460-59cfe8ed190e",
	}
	for name, want := range cases {
		if got := OfflineProfile(name).UUID.String(); got != want {
			t.Errorf("OfflineProfile(%q).UUID = %s, want %s", name, got, want)
		}
	}
}
