package proto

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
	"sync"

	"github.com/opencraft/voxelcore/internal/metrics"
	"github.com/opencraft/voxelcore/internal/proto/mcrypto"
)

// NoCompression disables the compression framing entirely (the pre-login / pre-threshold state).
const NoCompression = -1

// Transport frames packets over an underlying connection, and owns the mid-stream
// toggles for encryption and compression that the Login->Play transition performs.
// A single Transport is used by exactly one reader and one writer goroutine; WritePacket
// is additionally safe to call concurrently (it serializes under writeMu) so the
// keep-alive ticker and gameplay dispatch can share one connection without reordering.
type Transport struct {
	conn io.ReadWriteCloser

	reader io.Reader
	writer io.Writer

	compressionThreshold int32 // NoCompression (-1) until set

	writeMu sync.Mutex
}

// NewTransport wraps conn in cleartext, uncompressed framing.
func NewTransport(conn io.ReadWriteCloser) *Transport {
	return &Transport{conn: conn, reader: conn, writer: conn, compressionThreshold: NoCompression}
}

// EnableEncryption swaps both directions onto AES-128-CFB8 streams keyed by secret.
// The packet that triggers this (LoginSuccess's predecessor, EncryptionResponse on the
// read side) must already have been fully read/written in cleartext before calling this.
func (t *Transport) EnableEncryption(secret []byte) error {
	block, err := aes.NewCipher(secret)
	if err != nil {
		return fmt.Errorf("proto: enable encryption: %w", err)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.reader = cipher.StreamReader{S: mcrypto.NewCFB8Decrypter(block, secret), R: t.conn}
	t.writer = cipher.StreamWriter{S: mcrypto.NewCFB8Encrypter(block, secret), W: t.conn}
	return nil
}

// SetCompressionThreshold enables (threshold >= 0) or disables (NoCompression) the
// compressed framing for subsequent packets in both directions.
func (t *Transport) SetCompressionThreshold(threshold int32) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.compressionThreshold = threshold
}

// WritePacket encodes and sends pk, applying the current compression setting.
// Serialized under writeMu so concurrent senders (gameplay dispatch, keep-alive timer)
// cannot interleave two packets' bytes.
func (t *Transport) WritePacket(pk *Packet) error {
	raw, err := pk.encodeRaw()
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	var frame bytes.Buffer
	if t.compressionThreshold < 0 {
		if _, err := VarUInt(len(raw)).WriteTo(&frame); err != nil {
			return err
		}
		frame.Write(raw)
	} else if int32(len(raw)) < t.compressionThreshold {
		var body bytes.Buffer
		VarUInt(0).WriteTo(&body)
		body.Write(raw)
		VarUInt(body.Len()).WriteTo(&frame)
		frame.Write(body.Bytes())
	} else {
		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(raw); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}

		var body bytes.Buffer
		VarUInt(len(raw)).WriteTo(&body)
		body.Write(compressed.Bytes())
		VarUInt(body.Len()).WriteTo(&frame)
		frame.Write(body.Bytes())
	}

	if _, err = t.writer.Write(frame.Bytes()); err != nil {
		return err
	}
	metrics.PacketsWritten.Inc()
	return nil
}

// ReadPacket blocks until a full packet has arrived and decodes it, applying the
// current compression setting. Only ever called from the transport's single reader
// goroutine, so it needs no locking of its own.
func (t *Transport) ReadPacket() (*Packet, error) {
	var length VarUInt
	if _, err := length.ReadFrom(t.reader); err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, ErrPacketTooSmall
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		return nil, fmt.Errorf("proto: read packet body: %w", err)
	}
	buf := bytes.NewBuffer(body)

	var raw []byte
	threshold := t.compressionThreshold
	if threshold < 0 {
		raw = buf.Bytes()
	} else {
		var dataLength VarUInt
		if _, err := dataLength.ReadFrom(buf); err != nil {
			return nil, fmt.Errorf("proto: read data length: %w", err)
		}
		if dataLength == 0 {
			raw = buf.Bytes()
		} else {
			zr, err := zlib.NewReader(buf)
			if err != nil {
				return nil, fmt.Errorf("proto: zlib reader: %w", err)
			}
			decompressed := make([]byte, dataLength)
			if _, err := io.ReadFull(zr, decompressed); err != nil {
				return nil, fmt.Errorf("proto: zlib decompress: %w", err)
			}
			raw = decompressed
		}
	}

	rawBuf := bytes.NewBuffer(raw)
	var id VarUInt
	if _, err := id.ReadFrom(rawBuf); err != nil {
		return nil, fmt.Errorf("proto: read packet id: %w", err)
	}
	pk := &Packet{ID: id}
	pk.data = *bytes.NewBuffer(rawBuf.Bytes())
	metrics.PacketsRead.Inc()
	return pk, nil
}

// Close closes the underlying connection.
func (t *Transport) Close() error { return t.conn.Close() }
