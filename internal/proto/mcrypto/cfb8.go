// Package mcrypto implements the AES-128-CFB8 stream cipher used to encrypt a
// Minecraft connection once the shared secret has been exchanged during login,
// and the RSA keypair / PKCS1v15 exchange that establishes that secret.
package mcrypto

import "crypto/cipher"

// cfb8 implements cipher.Stream for CFB8 (8-bit feedback) mode, which the standard
// library's cipher.NewCFBEncrypter/Decrypter do not provide (those operate in
// full-block-size CFB). Minecraft's protocol requires byte-at-a-time feedback so
// that a VarInt can be decrypted one byte at a time before its length is known.
type cfb8 struct {
	block     cipher.Block
	blockSize int
	iv        []byte // shift register, len == blockSize
	encrypt   bool
}

// NewCFB8Encrypter returns a cipher.Stream that encrypts in CFB8 mode, keyed and
// IV'd by iv (the shared secret, per the Minecraft protocol convention).
func NewCFB8Encrypter(block cipher.Block, iv []byte) cipher.Stream {
	return newCFB8(block, iv, true)
}

// NewCFB8Decrypter returns a cipher.Stream that decrypts in CFB8 mode.
func NewCFB8Decrypter(block cipher.Block, iv []byte) cipher.Stream {
	return newCFB8(block, iv, false)
}

func newCFB8(block cipher.Block, iv []byte, encrypt bool) *cfb8 {
	bs := block.BlockSize()
	if len(iv) != bs {
		panic("mcrypto: IV length must equal block size")
	}
	reg := make([]byte, bs)
	copy(reg, iv)
	return &cfb8{block: block, blockSize: bs, iv: reg, encrypt: encrypt}
}

// XORKeyStream encrypts/decrypts src into dst, one byte at a time: each output byte
// is produced by encrypting the current shift register under the block cipher and
// XORing its first byte with the input byte, then shifting that byte (ciphertext for
// encryption, source byte for decryption) into the register.
func (c *cfb8) XORKeyStream(dst, src []byte) {
	tmp := make([]byte, c.blockSize)
	for i := 0; i < len(src); i++ {
		c.block.Encrypt(tmp, c.iv)
		out := src[i] ^ tmp[0]

		// CFB8 always feeds back ciphertext: the just-produced byte when encrypting,
		// the just-consumed byte when decrypting.
		feedback := src[i]
		if c.encrypt {
			feedback = out
		}

		copy(c.iv, c.iv[1:])
		c.iv[c.blockSize-1] = feedback

		dst[i] = out
	}
}
