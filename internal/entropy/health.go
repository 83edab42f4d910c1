package entropy

import (
	"errors"
	"fmt"
	"sync"
)

// ErrHealthTestFailed is returned when a health test rejects a source's
// output. The words that tripped the test are discarded.
var ErrHealthTestFailed = errors.New("entropy: health test failed")

// Default cutoffs assume 1 bit of min-entropy per 32-bit word and a false
// positive rate of 2^-20.
const (
	DefaultRepetitionCutoff = 21
	DefaultProportionWindow = 512
	DefaultProportionCutoff = 410
)

// HealthStatus is the state of a health test.
type HealthStatus int

const (
	HealthUnknown HealthStatus = iota
	HealthHealthy
	HealthFailed
)

func (h HealthStatus) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HealthTest is a continuous test over a stream of seed words.
type HealthTest interface {
	Name() string
	Feed(w uint32)
	Status() HealthStatus
	Reset()
}

// RepetitionCountTest flags a source that emits the same word cutoff
// times in a row (SP 800-90B 4.4.1).
type RepetitionCountTest struct {
	cutoff int
	last   uint32
	run    int
	status HealthStatus
}

// NewRepetitionCountTest returns a test with the given cutoff, or
// DefaultRepetitionCutoff when cutoff <= 1.
func NewRepetitionCountTest(cutoff int) *RepetitionCountTest {
	if cutoff <= 1 {
		cutoff = DefaultRepetitionCutoff
	}
	return &RepetitionCountTest{cutoff: cutoff}
}

func (t *RepetitionCountTest) Name() string { return "repetition_count" }

func (t *RepetitionCountTest) Feed(w uint32) {
	if t.run > 0 && w == t.last {
		t.run++
	} else {
		t.last = w
		t.run = 1
	}
	if t.run >= t.cutoff {
		t.status = HealthFailed
	} else if t.status != HealthFailed {
		t.status = HealthHealthy
	}
}

func (t *RepetitionCountTest) Status() HealthStatus { return t.status }

func (t *RepetitionCountTest) Reset() {
	t.run = 0
	t.status = HealthUnknown
}

// AdaptiveProportionTest splits the stream into non-overlapping windows
// and flags a window whose first word recurs, counting itself, cutoff or
// more times within it (SP 800-90B 4.4.2).
type AdaptiveProportionTest struct {
	window int
	cutoff int

	ref    uint32
	seen   int
	count  int
	status HealthStatus
}

// NewAdaptiveProportionTest returns a test over windows of the given
// size. Non-positive arguments select the defaults.
func NewAdaptiveProportionTest(window, cutoff int) *AdaptiveProportionTest {
	if window <= 0 {
		window = DefaultProportionWindow
	}
	if cutoff <= 0 {
		cutoff = DefaultProportionCutoff
	}
	return &AdaptiveProportionTest{window: window, cutoff: cutoff}
}

func (t *AdaptiveProportionTest) Name() string { return "adaptive_proportion" }

func (t *AdaptiveProportionTest) Feed(w uint32) {
	switch {
	case t.seen == 0:
		t.ref = w
		t.count = 1
	case w == t.ref:
		t.count++
	}
	if t.seen++; t.seen == t.window {
		t.seen = 0
	}

	if t.count >= t.cutoff {
		t.status = HealthFailed
	} else if t.status != HealthFailed {
		t.status = HealthHealthy
	}
}

func (t *AdaptiveProportionTest) Status() HealthStatus { return t.status }

func (t *AdaptiveProportionTest) Reset() {
	t.seen = 0
	t.count = 0
	t.status = HealthUnknown
}

// HealthCheckedSource runs every word from a Source through health tests
// before handing it out. A failure latches until Reset.
type HealthCheckedSource struct {
	mu    sync.Mutex
	src   Source
	tests []HealthTest
}

// NewHealthCheckedSource wraps src. With no tests it uses a repetition
// count and an adaptive proportion test with default cutoffs.
func NewHealthCheckedSource(src Source, tests ...HealthTest) *HealthCheckedSource {
	if len(tests) == 0 {
		tests = []HealthTest{
			NewRepetitionCountTest(0),
			NewAdaptiveProportionTest(0, 0),
		}
	}
	return &HealthCheckedSource{src: src, tests: tests}
}

// SeedWords returns n words from the wrapped source if they pass.
func (h *HealthCheckedSource) SeedWords(n int) ([]uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.failure(); err != nil {
		return nil, err
	}

	words, err := h.src.SeedWords(n)
	if err != nil {
		return nil, err
	}
	for _, w := range words {
		for _, t := range h.tests {
			t.Feed(w)
		}
	}
	if err := h.failure(); err != nil {
		return nil, err
	}
	return words, nil
}

func (h *HealthCheckedSource) failure() error {
	for _, t := range h.tests {
		if t.Status() == HealthFailed {
			return fmt.Errorf("%w: %s", ErrHealthTestFailed, t.Name())
		}
	}
	return nil
}

// Status reports each test's state by name.
func (h *HealthCheckedSource) Status() map[string]HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]HealthStatus, len(h.tests))
	for _, t := range h.tests {
		out[t.Name()] = t.Status()
	}
	return out
}

// Reset clears every test.
func (h *HealthCheckedSource) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.tests {
		t.Reset()
	}
}

// Close closes the wrapped source.
func (h *HealthCheckedSource) Close() error {
	return Close(h.src)
}
