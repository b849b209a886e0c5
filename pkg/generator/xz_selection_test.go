package generator

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/saworbit/zipatch/pkg/engine"
	"github.com/saworbit/zipatch/pkg/patch"
)

func randomBytes(seed int64, n int) []byte {
	r := rand.New(rand.NewSource(seed))
	b := make([]byte, n)
	r.Read(b)
	return b
}

// TestLargeDeltaSelectsXZCompression pins down that Defaults()'s
// registration order gives xz a real chance to be chosen: deflate only
// accepts blobs under its size threshold, and a bsdiff delta between two
// large, unrelated payloads is mostly incompressible stored bytes, well
// above it.
func TestLargeDeltaSelectsXZCompression(t *testing.T) {
	old := buildArchive(t, map[string]string{"a": string(randomBytes(1, 16384))})
	newer := buildArchive(t, map[string]string{"a": string(randomBytes(2, 16384))})

	var buf bytes.Buffer
	report, err := Generate(&buf, old, newer, engine.Defaults())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if report.PatchCount != 1 {
		t.Fatalf("report = %+v, want 1 PATCH", report)
	}

	_, directives := readDirectives(t, &buf)
	if directives[1].Command != patch.CmdPatch {
		t.Fatalf("directive = %v, want PATCH", directives[1].Command)
	}
	if got := directives[1].Patch.CompressionEngineID(); got != engine.CompressionEngineXZ {
		t.Errorf("CompressionEngineID() = %d, want %d (xz) for a delta above deflate's threshold", got, engine.CompressionEngineXZ)
	}
}

// TestSmallDeltaSelectsDeflateCompression confirms deflate is still chosen
// for small deltas, so raising xz's reach didn't make deflate unreachable
// in the other direction.
func TestSmallDeltaSelectsDeflateCompression(t *testing.T) {
	old := buildArchive(t, map[string]string{"a": "payload one, quite similar to the next"})
	newer := buildArchive(t, map[string]string{"a": "payload two, quite similar to the last"})

	var buf bytes.Buffer
	report, err := Generate(&buf, old, newer, engine.Defaults())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if report.PatchCount != 1 {
		t.Fatalf("report = %+v, want 1 PATCH", report)
	}

	_, directives := readDirectives(t, &buf)
	if got := directives[1].Patch.CompressionEngineID(); got != engine.CompressionEngineDeflateRaw {
		t.Errorf("CompressionEngineID() = %d, want %d (deflate) for a small delta", got, engine.CompressionEngineDeflateRaw)
	}
}
