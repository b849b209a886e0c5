package engine

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

type identityCompressor struct{}

func newIdentityCompressor() *identityCompressor { return &identityCompressor{} }

func (c *identityCompressor) ID() uint32                { return CompressionEngineNone }
func (c *identityCompressor) Accepts(data []byte) bool  { return true }
func (c *identityCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

type identityUncompressor struct{}

func newIdentityUncompressor() *identityUncompressor { return &identityUncompressor{} }

func (u *identityUncompressor) ID() uint32 { return CompressionEngineNone }
func (u *identityUncompressor) Uncompress(data []byte) ([]byte, error) {
	return data, nil
}

// deflateSizeThreshold is the blob size above which deflate defers to a
// higher-ratio compressor registered after it. Below the threshold
// deflate's speed and lower per-block overhead win; above it, the ratio
// gap to xz is worth the extra CPU.
const deflateSizeThreshold = 4096

// deflateCompressor produces raw (headerless) deflate streams, matching
// the payload format used inside archive entries.
type deflateCompressor struct{}

func newDeflateCompressor() *deflateCompressor { return &deflateCompressor{} }

func (c *deflateCompressor) ID() uint32 { return CompressionEngineDeflateRaw }

// Accepts claims small blobs, leaving larger ones for a compressor
// registered after it with a better size/speed tradeoff at that scale.
func (c *deflateCompressor) Accepts(data []byte) bool {
	return len(data) > 0 && len(data) < deflateSizeThreshold
}

func (c *deflateCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("engine: deflate compress: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("engine: deflate compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("engine: deflate compress: %w", err)
	}
	return buf.Bytes(), nil
}

type deflateUncompressor struct{}

func newDeflateUncompressor() *deflateUncompressor { return &deflateUncompressor{} }

func (u *deflateUncompressor) ID() uint32 { return CompressionEngineDeflateRaw }

func (u *deflateUncompressor) Uncompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("engine: deflate uncompress: %w", err)
	}
	return out, nil
}
