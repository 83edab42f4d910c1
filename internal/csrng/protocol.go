package csrng

import (
	"fmt"
	"log/slog"

	"csrngemu/internal/entropy"
)

// Engine is the narrow view of the DRBG the protocol drives.
type Engine interface {
	Instantiate(seed []uint32)
	Generate(blocks int)
	Uninstantiate()
}

// EntropySource supplies seed words in register order (oldest first).
type EntropySource interface {
	SeedWords(n int) ([]uint32, error)
}

// Phase is where the CMD_REQ decoder is between writes.
type Phase int

const (
	ExpectingNewCommand Phase = iota
	ExpectingSeedWords
)

// ProtocolState is a snapshot of the CMD_REQ decoder.
type ProtocolState struct {
	Phase Phase
	// Remaining is the number of seed words still expected while in
	// ExpectingSeedWords.
	Remaining int
}

func (s ProtocolState) String() string {
	if s.Phase == ExpectingSeedWords {
		return fmt.Sprintf("ExpectingSeedWords{remaining: %d}", s.Remaining)
	}
	return "ExpectingNewCommand"
}

// Protocol turns the stream of CMD_REQ writes into engine operations.
// A command header either runs immediately or, for an INSTANTIATE with
// a software seed, parks the decoder until clen seed words arrive.
type Protocol struct {
	engine  Engine
	entropy EntropySource
	logger  *slog.Logger

	state ProtocolState
	clen  int
	seed  []uint32
}

// NewProtocol returns a decoder expecting a new command. A nil logger
// discards output.
func NewProtocol(engine Engine, entropy EntropySource, logger *slog.Logger) *Protocol {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Protocol{
		engine:  engine,
		entropy: entropy,
		logger:  logger,
	}
}

// State returns the current decoder state.
func (p *Protocol) State() ProtocolState {
	return p.state
}

// SubmitWord processes one CMD_REQ write.
func (p *Protocol) SubmitWord(word uint32) error {
	if p.state.Phase == ExpectingSeedWords {
		p.acceptSeedWord(word)
		return nil
	}
	return p.processCommand(word)
}

func (p *Protocol) acceptSeedWord(word uint32) {
	p.seed = append(p.seed, word)
	if len(p.seed) < p.clen {
		p.state.Remaining = p.clen - len(p.seed)
		return
	}

	p.logger.Debug("seed complete, instantiating", slog.Int("clen", p.clen))
	p.engine.Instantiate(p.seed)
	p.seed = p.seed[:0]
	p.clen = 0
	p.state = ProtocolState{Phase: ExpectingNewCommand}
}

func (p *Protocol) processCommand(word uint32) error {
	cmd := DecodeCommand(word)
	p.logger.Debug("command",
		slog.String("acmd", cmd.Acmd.String()),
		slog.Uint64("clen", uint64(cmd.Clen)),
		slog.Uint64("flag0", uint64(cmd.Flag0)),
		slog.Uint64("glen", uint64(cmd.Glen)),
	)

	var err error
	switch cmd.Acmd {
	case AcmdInstantiate:
		err = p.instantiate(word, cmd)
	case AcmdGenerate:
		p.engine.Generate(int(cmd.Glen))
	case AcmdUninstantiate:
		p.engine.Uninstantiate()
	default:
		err = unsupported(word, cmd, fmt.Sprintf("acmd %d", uint32(cmd.Acmd)))
	}

	if err != nil {
		p.logger.Warn("command fault", slog.Any("error", err))
	}
	return err
}

func (p *Protocol) instantiate(word uint32, cmd Command) error {
	flag0 := ParseMultiBitBool(cmd.Flag0)
	switch {
	case flag0 == MuBiFalse && cmd.Clen == 0:
		if p.entropy == nil {
			return fmt.Errorf("%w: no source configured", ErrEntropyUnavailable)
		}
		seed, err := p.entropy.SeedWords(entropy.SeedWordCount)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEntropyUnavailable, err)
		}
		p.engine.Instantiate(seed)

	case flag0 == MuBiFalse:
		return unsupported(word, cmd, "seed: entropy source XOR constant")

	case flag0 == MuBiTrue && cmd.Clen == 0:
		p.engine.Instantiate(nil)

	case flag0 == MuBiTrue:
		p.clen = int(cmd.Clen)
		p.seed = p.seed[:0]
		p.state = ProtocolState{Phase: ExpectingSeedWords, Remaining: p.clen}

	default:
		return invalid(word, cmd, fmt.Sprintf("INSTANTIATE flag0=%d clen=%d", cmd.Flag0, cmd.Clen))
	}
	return nil
}
