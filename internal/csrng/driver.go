package csrng

import (
	"errors"
	"fmt"
)

// Driver errors
var (
	ErrSeedTooLong   = errors.New("csrng: seed longer than 15 words")
	ErrTooManyBlocks = errors.New("csrng: block count exceeds GLEN")
	ErrNotReady      = errors.New("csrng: command interface not ready")
)

// RegisterBus is the register access a driver needs.
type RegisterBus interface {
	Read(offset uint32) (uint32, error)
	Write(offset uint32, value uint32) error
}

// Driver issues commands the way firmware does: check SW_CMD_STS, write
// the header and any seed words to CMD_REQ, then poll GENBITS_VLD before
// each GENBITS read.
type Driver struct {
	regs RegisterBus
}

// NewDriver returns a driver over regs, typically a *Device.
func NewDriver(regs RegisterBus) *Driver {
	return &Driver{regs: regs}
}

// Instantiate seeds the DRBG with software-supplied words. An empty seed
// selects the zero seed.
func (d *Driver) Instantiate(seed []uint32) error {
	if len(seed) > MaxClen {
		return fmt.Errorf("%w: %d", ErrSeedTooLong, len(seed))
	}
	if err := d.command(InstantiateCommand(true, uint32(len(seed)))); err != nil {
		return err
	}
	for i, w := range seed {
		if err := d.regs.Write(OffsetCmdReq, w); err != nil {
			return fmt.Errorf("write seed word %d: %w", i, err)
		}
	}
	return nil
}

// InstantiateFromEntropy seeds the DRBG from the entropy source.
func (d *Driver) InstantiateFromEntropy() error {
	return d.command(InstantiateCommand(false, 0))
}

// Generate requests blocks and returns every word read back, in the
// order GENBITS produced them.
func (d *Driver) Generate(blocks int) ([]uint32, error) {
	if blocks < 0 || blocks > MaxGlen {
		return nil, fmt.Errorf("%w: %d", ErrTooManyBlocks, blocks)
	}
	if err := d.command(GenerateCommand(uint32(blocks))); err != nil {
		return nil, err
	}
	return d.Drain()
}

// Drain reads GENBITS until GENBITS_VLD reports no more data.
func (d *Driver) Drain() ([]uint32, error) {
	var out []uint32
	for {
		vld, err := d.regs.Read(OffsetGenbitsVld)
		if err != nil {
			return out, fmt.Errorf("read GENBITS_VLD: %w", err)
		}
		if vld&1 == 0 {
			return out, nil
		}
		w, err := d.regs.Read(OffsetGenbits)
		if err != nil {
			return out, fmt.Errorf("read GENBITS: %w", err)
		}
		out = append(out, w)
	}
}

// Uninstantiate clears the DRBG.
func (d *Driver) Uninstantiate() error {
	return d.command(UninstantiateCommand())
}

func (d *Driver) command(cmd Command) error {
	sts, err := d.regs.Read(OffsetSwCmdSts)
	if err != nil {
		return fmt.Errorf("read SW_CMD_STS: %w", err)
	}
	if sts&SwCmdStsReady == 0 {
		return ErrNotReady
	}
	if err := d.regs.Write(OffsetCmdReq, cmd.Encode()); err != nil {
		return fmt.Errorf("%s: %w", cmd.Acmd, err)
	}
	return nil
}
