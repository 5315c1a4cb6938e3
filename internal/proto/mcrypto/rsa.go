package mcrypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
)

// KeyPair is the server's RSA-1024 login keypair, generated once at startup
// (vanilla uses 1024 bits; generation is brief enough to run inline per the
// concurrency model's no-blocking-syscalls rule).
type KeyPair struct {
	Private *rsa.PrivateKey
	PubDER  []byte
}

// GenerateKeyPair creates a fresh 1024-bit RSA keypair and its ASN.1 DER public key,
// the form sent verbatim in EncryptionRequest.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv, PubDER: der}, nil
}

// Decrypt reverses the client's RSA/PKCS1v15 encryption of the shared secret or
// verify token.
func (k *KeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(rand.Reader, k.Private, ciphertext)
}
