// Package csrng models the CSRNG and entropy-source register blocks of a
// root-of-trust chip.
//
// Software drives the model purely through 32-bit register accesses:
// command words written to CMD_REQ are decoded by the Protocol, which
// runs the CTR_DRBG engine, and generated bits come back through the
// GENBITS_VLD/GENBITS pair. Everything executes synchronously inside the
// register access that triggered it.
package csrng

import (
	"fmt"
	"log/slog"

	"csrngemu/internal/bus"
	"csrngemu/internal/drbg"
	"csrngemu/internal/entropy"
)

// Register offsets relative to the block base.
const (
	OffsetCtrl                   uint32 = 0x14
	OffsetCmdReq                 uint32 = 0x18
	OffsetSwCmdSts               uint32 = 0x1c
	OffsetGenbitsVld             uint32 = 0x20
	OffsetGenbits                uint32 = 0x24
	OffsetModuleEnable           uint32 = 0x1020
	OffsetConf                   uint32 = 0x1024
	OffsetAlertSummaryFailCounts uint32 = 0x10a4
	OffsetAlertFailCounts        uint32 = 0x10a8
	OffsetDebugStatus            uint32 = 0x10d0
)

// Reset values of the registers the model does not interpret.
const (
	ResetCtrl         uint32 = 0x999
	ResetModuleEnable uint32 = 0x9
	ResetConf         uint32 = 0x909099
	SwCmdStsReady     uint32 = 0b01
	DebugStatusIdle   uint32 = 1 << 17
)

// Config wires a Device to its collaborators.
type Config struct {
	// Entropy seeds INSTANTIATE commands that ask for the entropy source.
	// Nil uses entropy.DefaultStaticWords.
	Entropy EntropySource

	// Cipher overrides the AES-256 block primitive. Nil uses crypto/aes.
	Cipher drbg.Cipher

	// Logger receives command and fault logs. Nil discards.
	Logger *slog.Logger
}

// EngineState is a diagnostic snapshot of the DRBG. It is not visible
// through any register.
type EngineState struct {
	Key     drbg.Key
	V       drbg.Block
	Pending int
}

// Device is one CSRNG instance with its register file.
type Device struct {
	regs     *bus.RegisterFile
	engine   *drbg.CtrDrbg
	protocol *Protocol
	genbits  *Genbits

	ctrl         uint32
	moduleEnable uint32
	conf         uint32
}

// NewDevice builds a device in its reset state.
func NewDevice(cfg Config) *Device {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	src := cfg.Entropy
	if src == nil {
		src = entropy.NewStaticSource(nil)
	}

	engine := drbg.New(cfg.Cipher)
	d := &Device{
		regs:         bus.NewRegisterFile(),
		engine:       engine,
		protocol:     NewProtocol(engine, src, logger.With(slog.String("component", "csrng"))),
		genbits:      NewGenbits(engine),
		ctrl:         ResetCtrl,
		moduleEnable: ResetModuleEnable,
		conf:         ResetConf,
	}
	d.mapRegisters()
	return d
}

func (d *Device) mapRegisters() {
	table := []struct {
		offset uint32
		h      bus.Handler
	}{
		{OffsetCtrl, bus.ReadWrite("CTRL", &d.ctrl)},
		{OffsetCmdReq, bus.Handler{
			Name:        "CMD_REQ",
			Write:       d.protocol.SubmitWord,
			SideEffects: true,
		}},
		{OffsetSwCmdSts, bus.ReadOnly("SW_CMD_STS", SwCmdStsReady)},
		{OffsetGenbitsVld, bus.Handler{
			Name:        "GENBITS_VLD",
			Read:        d.genbits.Valid,
			SideEffects: true,
		}},
		{OffsetGenbits, bus.Handler{
			Name:        "GENBITS",
			Read:        d.genbits.Next,
			SideEffects: true,
		}},
		{OffsetModuleEnable, bus.ReadWrite("MODULE_ENABLE", &d.moduleEnable)},
		{OffsetConf, bus.ReadWrite("CONF", &d.conf)},
		{OffsetAlertSummaryFailCounts, bus.ReadOnly("ALERT_SUMMARY_FAIL_COUNTS", 0)},
		{OffsetAlertFailCounts, bus.ReadOnly("ALERT_FAIL_COUNTS", 0)},
		{OffsetDebugStatus, bus.ReadOnly("DEBUG_STATUS", DebugStatusIdle)},
	}

	for _, r := range table {
		if err := d.regs.Map(r.offset, r.h); err != nil {
			panic(fmt.Sprintf("csrng: register map: %v", err))
		}
	}
}

// Read performs a 32-bit register read.
func (d *Device) Read(offset uint32) (uint32, error) {
	return d.regs.Read(offset)
}

// Write performs a 32-bit register write.
func (d *Device) Write(offset uint32, value uint32) error {
	return d.regs.Write(offset, value)
}

// Observe attaches o to the device's register file.
func (d *Device) Observe(o bus.Observer) {
	d.regs.Observe(o)
}

// Registers returns the register map.
func (d *Device) Registers() []bus.Entry {
	return d.regs.Entries()
}

// ProtocolState returns the CMD_REQ decoder state.
func (d *Device) ProtocolState() ProtocolState {
	return d.protocol.State()
}

// EngineState returns a copy of the DRBG state.
func (d *Device) EngineState() EngineState {
	key, v := d.engine.State()
	return EngineState{Key: key, V: v, Pending: len(d.engine.Pending())}
}
