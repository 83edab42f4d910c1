package kat

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csrngemu/internal/bus"
	"csrngemu/internal/csrng"
	"csrngemu/internal/entropy"
)

func newDevice() *csrng.Device {
	return csrng.NewDevice(csrng.Config{Entropy: entropy.NewStaticSource(nil)})
}

func TestBuiltinVectorsPass(t *testing.T) {
	vectors, err := Builtin()
	require.NoError(t, err)
	require.NotEmpty(t, vectors)

	results, err := Run(context.Background(), vectors, newDevice)
	require.NoError(t, err)
	require.Len(t, results, len(vectors))
	for _, r := range results {
		assert.True(t, r.Passed(), "%s: err=%v mismatches=%v", r.Name, r.Err, r.Mismatches)
	}
}

func TestBuiltinVectorShape(t *testing.T) {
	vectors, err := Builtin()
	require.NoError(t, err)

	v := vectors[0]
	assert.Equal(t, "CTR_DRBG AES-256 no df, PR=false, COUNT=2", v.Name)
	assert.Len(t, v.Seed, 12)
	assert.Equal(t, uint32(0x4835c677), v.Seed[0])
	assert.Equal(t, []int{4, 4}, v.Generate)
	assert.Len(t, v.Expected, 16)
	assert.Equal(t, uint32(0x61f76c84), v.Expected[0])
}

func TestMismatchIsReported(t *testing.T) {
	vectors, err := Builtin()
	require.NoError(t, err)

	v := vectors[0]
	v.Expected = append(Words(nil), v.Expected...)
	v.Expected[3] ^= 1
	v.ExpectedV = strings.Repeat("0", 32)

	results, err := Run(context.Background(), []Vector{v}, newDevice)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.False(t, r.Passed())
	assert.NoError(t, r.Err)
	require.Len(t, r.Mismatches, 2)
	assert.Contains(t, r.Mismatches[0], "word 3")
	assert.Contains(t, r.Mismatches[1], "v:")
}

func TestShortOutputIsReported(t *testing.T) {
	v := Vector{Name: "short", Generate: []int{1}, Expected: make(Words, 8)}
	results, err := Run(context.Background(), []Vector{v}, newDevice)
	require.NoError(t, err)
	assert.Contains(t, results[0].Mismatches[0], "word count: got 4, want 8")
}

func TestRecordedVectorReplays(t *testing.T) {
	// Record a zero-seed run and check a fresh device reproduces it.
	dev := newDevice()
	drv := csrng.NewDriver(dev)
	require.NoError(t, drv.Instantiate(nil))
	words, err := drv.Generate(3)
	require.NoError(t, err)

	v := Vector{Name: "zero seed", Generate: []int{3}, Expected: words}
	data, err := Encode([]Vector{v})
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)

	results, err := Run(context.Background(), parsed, newDevice)
	require.NoError(t, err)
	assert.True(t, results[0].Passed(), "%v", results[0].Mismatches)
}

func TestEntropyVector(t *testing.T) {
	// Expected output comes from an explicitly seeded device.
	drv := csrng.NewDriver(newDevice())
	require.NoError(t, drv.Instantiate(entropy.DefaultStaticWords))
	words, err := drv.Generate(2)
	require.NoError(t, err)
	require.Len(t, words, 8)

	v := Vector{Name: "static entropy", Entropy: true, Generate: []int{2}, Expected: words}
	results, err := Run(context.Background(), []Vector{v}, newDevice)
	require.NoError(t, err)
	assert.True(t, results[0].Passed(), "%v", results[0].Mismatches)
}

func TestDefaultDeviceRunsEntropyVector(t *testing.T) {
	drv := csrng.NewDriver(newDevice())
	require.NoError(t, drv.Instantiate(entropy.DefaultStaticWords))
	words, err := drv.Generate(1)
	require.NoError(t, err)

	bare := func() *csrng.Device { return csrng.NewDevice(csrng.Config{}) }
	v := Vector{Name: "default entropy", Entropy: true, Generate: []int{1}, Expected: words}
	results, err := Run(context.Background(), []Vector{v}, bare)
	require.NoError(t, err)
	assert.True(t, results[0].Passed(), "err=%v mismatches=%v", results[0].Err, results[0].Mismatches)
}

func TestDeviceFaultIsReported(t *testing.T) {
	// Two words cannot satisfy a twelve-word seed request.
	faulty := func() *csrng.Device {
		return csrng.NewDevice(csrng.Config{Entropy: entropy.NewStaticSource([]uint32{1, 2})})
	}
	v := Vector{Name: "short entropy", Entropy: true, Generate: []int{1}}

	results, err := Run(context.Background(), []Vector{v}, faulty)
	require.NoError(t, err)
	require.Error(t, results[0].Err)
	assert.ErrorIs(t, results[0].Err, csrng.ErrEntropyUnavailable)
	assert.ErrorIs(t, results[0].Err, entropy.ErrShortSeed)
	assert.False(t, results[0].Passed())
}

func TestRunHonorsCancellation(t *testing.T) {
	vectors, err := Builtin()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Run(ctx, vectors, newDevice)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestParseRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"wrong version", `{"version": 2, "vectors": [{"name": "a", "generate": [1], "expected": []}]}`},
		{"no vectors", `{"version": 1, "vectors": []}`},
		{"short word", `{"version": 1, "vectors": [{"name": "a", "seed": ["123"], "generate": [1], "expected": []}]}`},
		{"glen too large", `{"version": 1, "vectors": [{"name": "a", "generate": [8192], "expected": []}]}`},
		{"seed and entropy", `{"version": 1, "vectors": [{"name": "a", "seed": ["00000000"], "entropy": true, "generate": [1], "expected": []}]}`},
		{"unknown field", `{"version": 1, "vectors": [{"name": "a", "generate": [1], "expected": [], "glen": 3}]}`},
		{"seed too long", `{"version": 1, "vectors": [{"name": "a", "seed": [` +
			strings.TrimSuffix(strings.Repeat(`"00000000",`, 16), ",") +
			`], "generate": [1], "expected": []}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.body))
			assert.ErrorIs(t, err, ErrInvalidVectors)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.json")
	require.NoError(t, os.WriteFile(path, builtinJSON, 0600))

	vectors, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, vectors, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRunIsTraceable(t *testing.T) {
	vectors, err := Builtin()
	require.NoError(t, err)

	var writes int
	traced := func() *csrng.Device {
		d := newDevice()
		d.Observe(bus.ObserverFunc(func(tx bus.Transaction) {
			if tx.Op == bus.OpWrite {
				writes++
			}
		}))
		return d
	}

	results, err := Run(context.Background(), vectors, traced)
	require.NoError(t, err)
	assert.True(t, results[0].Passed())
	// INSTANTIATE + 12 seed words + two GENERATEs.
	assert.Equal(t, 15, writes)
}
