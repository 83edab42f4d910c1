package csrng

import "fmt"

// Acmd is the application command opcode carried in CMD_REQ bits [3:0].
type Acmd uint32

const (
	AcmdInstantiate   Acmd = 1
	AcmdGenerate      Acmd = 3
	AcmdUninstantiate Acmd = 5
)

func (a Acmd) String() string {
	switch a {
	case AcmdInstantiate:
		return "INSTANTIATE"
	case AcmdGenerate:
		return "GENERATE"
	case AcmdUninstantiate:
		return "UNINSTANTIATE"
	default:
		return fmt.Sprintf("ACMD(%d)", uint32(a))
	}
}

// Multi-bit boolean encodings used by the hardware for flag fields.
const (
	MuBi4True  uint32 = 6
	MuBi4False uint32 = 9
)

// MultiBitBool is a decoded 4-bit redundant boolean.
type MultiBitBool int

const (
	MuBiInvalid MultiBitBool = iota
	MuBiTrue
	MuBiFalse
)

// ParseMultiBitBool maps a raw 4-bit field to True, False or Invalid.
func ParseMultiBitBool(raw uint32) MultiBitBool {
	switch raw {
	case MuBi4True:
		return MuBiTrue
	case MuBi4False:
		return MuBiFalse
	default:
		return MuBiInvalid
	}
}

func (b MultiBitBool) String() string {
	switch b {
	case MuBiTrue:
		return "true"
	case MuBiFalse:
		return "false"
	default:
		return "invalid"
	}
}

// CMD_REQ field layout.
const (
	acmdShift  = 0
	acmdMask   = 0xf
	clenShift  = 4
	clenMask   = 0xf
	flag0Shift = 8
	flag0Mask  = 0xf
	glenShift  = 12
	glenMask   = 0x1fff

	// MaxClen is the largest number of seed words one command can carry.
	MaxClen = clenMask
	// MaxGlen is the largest block count one GENERATE can request.
	MaxGlen = glenMask
)

// Command is a decoded CMD_REQ header word.
type Command struct {
	Acmd  Acmd
	Clen  uint32
	Flag0 uint32
	Glen  uint32
}

// DecodeCommand splits a CMD_REQ word into its fields. Bits above 24 are
// ignored.
func DecodeCommand(word uint32) Command {
	return Command{
		Acmd:  Acmd((word >> acmdShift) & acmdMask),
		Clen:  (word >> clenShift) & clenMask,
		Flag0: (word >> flag0Shift) & flag0Mask,
		Glen:  (word >> glenShift) & glenMask,
	}
}

// Encode packs the command back into a CMD_REQ word. Out-of-range field
// values are truncated to their field width.
func (c Command) Encode() uint32 {
	return (uint32(c.Acmd)&acmdMask)<<acmdShift |
		(c.Clen&clenMask)<<clenShift |
		(c.Flag0&flag0Mask)<<flag0Shift |
		(c.Glen&glenMask)<<glenShift
}

func (c Command) String() string {
	return fmt.Sprintf("%s clen=%d flag0=%d glen=%d", c.Acmd, c.Clen, c.Flag0, c.Glen)
}

// InstantiateCommand builds an INSTANTIATE header. flag0 selects a
// software-supplied seed of clen words (true) or the entropy source (false).
func InstantiateCommand(flag0 bool, clen uint32) Command {
	c := Command{Acmd: AcmdInstantiate, Clen: clen, Flag0: MuBi4False}
	if flag0 {
		c.Flag0 = MuBi4True
	}
	return c
}

// GenerateCommand builds a GENERATE header requesting glen blocks.
func GenerateCommand(glen uint32) Command {
	return Command{Acmd: AcmdGenerate, Flag0: MuBi4False, Glen: glen}
}

// UninstantiateCommand builds an UNINSTANTIATE header.
func UninstantiateCommand() Command {
	return Command{Acmd: AcmdUninstantiate, Flag0: MuBi4False}
}
