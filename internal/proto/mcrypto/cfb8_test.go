package mcrypto

import (
	"bytes"
	"crypto/aes"
	"testing"
)

func TestCFB8RoundTrip(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, 16)
	block, err := aes.NewCipher(secret)
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte("the quick brown fox jumps over the lazy dog, repeatedly, to exceed one AES block")

	enc := NewCFB8Encrypter(block, secret)
	ciphertext := make([]byte, len(plaintext))
	enc.XORKeyStream(ciphertext, plaintext)

	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("ciphertext equals plaintext")
	}

	block2, _ := aes.NewCipher(secret)
	dec := NewCFB8Decrypter(block2, secret)
	decrypted := make([]byte, len(ciphertext))
	dec.XORKeyStream(decrypted, ciphertext)

	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", decrypted, plaintext)
	}
}

func TestCFB8ByteAtATime(t *testing.T) {
	secret := bytes.Repeat([]byte{0x07}, 16)
	plaintext := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18}

	blockA, _ := aes.NewCipher(secret)
	whole := make([]byte, len(plaintext))
	NewCFB8Encrypter(blockA, secret).XORKeyStream(whole, plaintext)

	blockB, _ := aes.NewCipher(secret)
	stream := NewCFB8Encrypter(blockB, secret)
	piecewise := make([]byte, len(plaintext))
	for i, p := range plaintext {
		stream.XORKeyStream(piecewise[i:i+1], []byte{p})
	}

	if !bytes.Equal(whole, piecewise) {
		t.Fatalf("encrypting byte-at-a-time must match bulk encryption: %v vs %v", piecewise, whole)
	}
}
