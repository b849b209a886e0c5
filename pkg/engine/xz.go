package engine

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// xzCompressor wraps ulikunitz/xz for secondary compression of delta
// blobs. It is registered after deflateCompressor in Defaults(), so it
// only ever sees blobs deflate declined: ones large enough that xz's
// slower, higher-ratio encoding is worth the extra CPU.
type xzCompressor struct{}

func newXZCompressor() *xzCompressor { return &xzCompressor{} }

func (c *xzCompressor) ID() uint32 { return CompressionEngineXZ }

// Accepts claims every non-empty blob: whatever reaches xz here already
// failed deflateCompressor's size threshold, so there is no further
// filtering to do.
func (c *xzCompressor) Accepts(data []byte) bool { return len(data) > 0 }

func (c *xzCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("engine: xz compress: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("engine: xz compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("engine: xz compress: %w", err)
	}
	return buf.Bytes(), nil
}

type xzUncompressor struct{}

func newXZUncompressor() *xzUncompressor { return &xzUncompressor{} }

func (u *xzUncompressor) ID() uint32 { return CompressionEngineXZ }

func (u *xzUncompressor) Uncompress(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("engine: xz uncompress: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("engine: xz uncompress: %w", err)
	}
	return out, nil
}
