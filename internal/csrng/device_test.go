package csrng

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csrngemu/internal/bus"
	"csrngemu/internal/drbg"
	"csrngemu/internal/entropy"
)

var nistEntropyInput = []uint32{
	0x4835c677, 0xff87f32f, 0x98662f2d, 0x5592efed, 0xb4c78ead, 0x160d1ce0,
	0x869dcbe2, 0x8d038018, 0xa694bca2, 0xab7bdcd5, 0xf2f8e2c4, 0x0217a8ac,
}

// Second GENERATE of the NIST vector as seen through GENBITS.
var nistGenbits = []uint32{
	0x61f76c84, 0xae908d30, 0x4f5b6410, 0x5831c9e6,
	0xd01bbfc3, 0x722bb718, 0x938a3bcd, 0x2e29f5a0,
	0xab91879c, 0xcde316d2, 0x8a5b246c, 0xd7f3f946,
	0x084744d4, 0x312507fb, 0x26f52875, 0xaa367797,
}

func newTestDevice() *Device {
	return NewDevice(Config{Entropy: &fixedEntropy{words: nistEntropyInput}})
}

func TestResetValues(t *testing.T) {
	d := newTestDevice()

	tests := []struct {
		name   string
		offset uint32
		want   uint32
	}{
		{"CTRL", OffsetCtrl, 0x999},
		{"SW_CMD_STS", OffsetSwCmdSts, 0b01},
		{"GENBITS_VLD", OffsetGenbitsVld, 0},
		{"GENBITS", OffsetGenbits, GenbitsSentinel},
		{"MODULE_ENABLE", OffsetModuleEnable, 0x9},
		{"CONF", OffsetConf, 0x909099},
		{"ALERT_SUMMARY_FAIL_COUNTS", OffsetAlertSummaryFailCounts, 0},
		{"ALERT_FAIL_COUNTS", OffsetAlertFailCounts, 0},
		{"DEBUG_STATUS", OffsetDebugStatus, 1 << 17},
		{"CMD_REQ", OffsetCmdReq, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := d.Read(tc.offset)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestUninterpretedRegistersStoreWrites(t *testing.T) {
	d := newTestDevice()
	for _, off := range []uint32{OffsetCtrl, OffsetModuleEnable, OffsetConf} {
		require.NoError(t, d.Write(off, 0x1234_5678))
		v, err := d.Read(off)
		require.NoError(t, err)
		assert.Equal(t, uint32(0x1234_5678), v)
	}
}

func TestReadOnlyRegistersFaultOnWrite(t *testing.T) {
	d := newTestDevice()
	for _, off := range []uint32{OffsetSwCmdSts, OffsetGenbitsVld, OffsetGenbits, OffsetAlertFailCounts, OffsetDebugStatus} {
		assert.ErrorIs(t, d.Write(off, 0), bus.ErrStoreAccessFault, "offset 0x%x", off)
	}
}

func TestNISTVectorThroughRegisters(t *testing.T) {
	d := newTestDevice()
	drv := NewDriver(d)

	require.NoError(t, drv.Instantiate(nistEntropyInput))
	st := d.EngineState()
	assert.Equal(t, "5118225735bdd47d02186824625fcf2943a4c025cbfda08c1143d9330e3413b5", hex.EncodeToString(st.Key[:]))
	assert.Equal(t, "27f2ec27afc005592e2506a13d33f3f9", hex.EncodeToString(st.V[:]))

	first, err := drv.Generate(4)
	require.NoError(t, err)
	assert.Len(t, first, 16)

	second, err := drv.Generate(4)
	require.NoError(t, err)
	assert.Equal(t, nistGenbits, second)

	st = d.EngineState()
	assert.Equal(t, "29a7babeda561bc30e8eaad7071efde51aa611ab42e9676afef6ad25851c4b82", hex.EncodeToString(st.Key[:]))
	assert.Equal(t, "981f260a2e69d260d0ddcd941af035fa", hex.EncodeToString(st.V[:]))
	assert.Zero(t, st.Pending)
}

func TestInstantiateFromEntropySourceThroughRegisters(t *testing.T) {
	seeded := newTestDevice()
	require.NoError(t, NewDriver(seeded).InstantiateFromEntropy())

	explicit := newTestDevice()
	require.NoError(t, NewDriver(explicit).Instantiate(nistEntropyInput))

	assert.Equal(t, explicit.EngineState(), seeded.EngineState())
}

func TestZeroConfigUsesStaticWords(t *testing.T) {
	d := NewDevice(Config{})
	require.NoError(t, d.Write(OffsetCmdReq, InstantiateCommand(false, 0).Encode()))

	ref := drbg.New(nil)
	ref.Instantiate(entropy.DefaultStaticWords)
	key, v := ref.State()

	assert.Equal(t, EngineState{Key: key, V: v}, d.EngineState())
	assert.Equal(t, ExpectingNewCommand, d.ProtocolState().Phase)
}

func TestDrainYieldsFourWordsPerBlock(t *testing.T) {
	for _, n := range []int{0, 1, 3, 16} {
		d := newTestDevice()
		drv := NewDriver(d)
		require.NoError(t, drv.Instantiate(nil))
		require.NoError(t, d.Write(OffsetCmdReq, GenerateCommand(uint32(n)).Encode()))

		count := 0
		for {
			vld, err := d.Read(OffsetGenbitsVld)
			require.NoError(t, err)
			if vld == 0 {
				break
			}
			_, err = d.Read(OffsetGenbits)
			require.NoError(t, err)
			count++
		}
		assert.Equal(t, 4*n, count, "blocks=%d", n)

		v, err := d.Read(OffsetGenbits)
		require.NoError(t, err)
		assert.Equal(t, GenbitsSentinel, v)
	}
}

func TestGenerateZeroReportsInvalidImmediately(t *testing.T) {
	d := newTestDevice()
	require.NoError(t, NewDriver(d).Instantiate(nil))
	require.NoError(t, d.Write(OffsetCmdReq, GenerateCommand(0).Encode()))

	v, err := d.Read(OffsetGenbitsVld)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestUninstantiateThenInstantiateMatchesFreshDevice(t *testing.T) {
	fresh := newTestDevice()
	freshDrv := NewDriver(fresh)
	require.NoError(t, freshDrv.Instantiate(nistEntropyInput))
	want, err := freshDrv.Generate(2)
	require.NoError(t, err)

	reused := newTestDevice()
	drv := NewDriver(reused)
	require.NoError(t, drv.Instantiate([]uint32{9, 8, 7}))
	_, err = drv.Generate(3)
	require.NoError(t, err)
	require.NoError(t, drv.Uninstantiate())
	assert.Equal(t, EngineState{}, reused.EngineState())

	require.NoError(t, drv.Instantiate(nistEntropyInput))
	got, err := drv.Generate(2)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, fresh.EngineState(), reused.EngineState())
}

func TestUninstantiateDropsUndrainedBlocks(t *testing.T) {
	d := newTestDevice()
	drv := NewDriver(d)
	require.NoError(t, drv.Instantiate(nistEntropyInput))
	require.NoError(t, d.Write(OffsetCmdReq, GenerateCommand(4).Encode()))
	require.Equal(t, 4, d.EngineState().Pending)

	require.NoError(t, drv.Uninstantiate())
	v, err := d.Read(OffsetGenbitsVld)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestPartialSeedParksDecoder(t *testing.T) {
	d := newTestDevice()
	require.NoError(t, d.Write(OffsetCmdReq, InstantiateCommand(true, 3).Encode()))
	require.NoError(t, d.Write(OffsetCmdReq, 0x11))
	require.NoError(t, d.Write(OffsetCmdReq, 0x22))

	assert.Equal(t, EngineState{}, d.EngineState())
	assert.Equal(t, ProtocolState{Phase: ExpectingSeedWords, Remaining: 1}, d.ProtocolState())

	require.NoError(t, d.Write(OffsetCmdReq, 0x33))
	assert.Equal(t, ExpectingNewCommand, d.ProtocolState().Phase)

	want := drbg.New(nil)
	want.Instantiate([]uint32{0x11, 0x22, 0x33})
	key, v := want.State()
	assert.Equal(t, EngineState{Key: key, V: v}, d.EngineState())
}

func TestCommandFaultSurfacesThroughWrite(t *testing.T) {
	d := newTestDevice()
	err := d.Write(OffsetCmdReq, InstantiateCommand(false, 5).Encode())
	assert.ErrorIs(t, err, ErrUnsupportedCommand)

	err = d.Write(OffsetCmdReq, Command{Acmd: AcmdInstantiate, Flag0: 3}.Encode())
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestRegisterMap(t *testing.T) {
	d := newTestDevice()
	entries := d.Registers()
	require.Len(t, entries, 10)

	byName := make(map[string]bus.Entry)
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, bus.AccessWriteOnly, byName["CMD_REQ"].Access)
	assert.True(t, byName["GENBITS"].SideEffects)
	assert.Equal(t, OffsetDebugStatus, byName["DEBUG_STATUS"].Offset)
	assert.Equal(t, bus.AccessReadWrite, byName["CONF"].Access)
}

func TestDriverRejectsOversizedRequests(t *testing.T) {
	drv := NewDriver(newTestDevice())
	assert.ErrorIs(t, drv.Instantiate(make([]uint32, 16)), ErrSeedTooLong)
	_, err := drv.Generate(MaxGlen + 1)
	assert.ErrorIs(t, err, ErrTooManyBlocks)
}
