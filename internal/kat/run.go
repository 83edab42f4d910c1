package kat

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"csrngemu/internal/csrng"
)

// Result is the outcome of one vector.
type Result struct {
	Name string

	// Got holds the words drained during the final round.
	Got []uint32

	// Mismatches describes every expectation that did not hold.
	Mismatches []string

	// Err is set when the device faulted before the comparison.
	Err error
}

// Passed reports whether the vector ran cleanly and matched.
func (r Result) Passed() bool {
	return r.Err == nil && len(r.Mismatches) == 0
}

// Run executes each vector on a fresh device from newDevice. It stops
// early only if ctx is cancelled.
func Run(ctx context.Context, vectors []Vector, newDevice func() *csrng.Device) ([]Result, error) {
	results := make([]Result, 0, len(vectors))
	for _, v := range vectors {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, runVector(v, newDevice()))
	}
	return results, nil
}

func runVector(v Vector, dev *csrng.Device) Result {
	res := Result{Name: v.Name}
	drv := csrng.NewDriver(dev)

	var err error
	if v.Entropy {
		err = drv.InstantiateFromEntropy()
	} else {
		err = drv.Instantiate(v.Seed)
	}
	if err != nil {
		res.Err = fmt.Errorf("instantiate: %w", err)
		return res
	}

	for i, glen := range v.Generate {
		words, err := drv.Generate(glen)
		if err != nil {
			res.Err = fmt.Errorf("generate round %d: %w", i, err)
			return res
		}
		res.Got = words
	}

	res.Mismatches = compareWords(v.Expected, res.Got)

	st := dev.EngineState()
	if v.ExpectedKey != "" {
		if got := hex.EncodeToString(st.Key[:]); !strings.EqualFold(got, v.ExpectedKey) {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("key: got %s, want %s", got, v.ExpectedKey))
		}
	}
	if v.ExpectedV != "" {
		if got := hex.EncodeToString(st.V[:]); !strings.EqualFold(got, v.ExpectedV) {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("v: got %s, want %s", got, v.ExpectedV))
		}
	}
	return res
}

func compareWords(want, got []uint32) []string {
	var out []string
	if len(want) != len(got) {
		out = append(out, fmt.Sprintf("word count: got %d, want %d", len(got), len(want)))
	}
	for i := 0; i < len(want) && i < len(got); i++ {
		if want[i] != got[i] {
			out = append(out, fmt.Sprintf("word %d: got %08x, want %08x", i, got[i], want[i]))
		}
	}
	return out
}
