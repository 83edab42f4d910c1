package csrng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name string
		word uint32
		want Command
	}{
		{"instantiate seeded", 0x6c1, Command{Acmd: AcmdInstantiate, Clen: 12, Flag0: MuBi4True}},
		{"instantiate entropy", 0x901, Command{Acmd: AcmdInstantiate, Flag0: MuBi4False}},
		{"generate", 0x4003, Command{Acmd: AcmdGenerate, Glen: 4}},
		{"generate max glen", 0x1fff003, Command{Acmd: AcmdGenerate, Glen: MaxGlen}},
		{"upper bits ignored", 0xfe000005, Command{Acmd: AcmdUninstantiate}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecodeCommand(tc.word))
		})
	}
}

func TestCommandEncode(t *testing.T) {
	assert.Equal(t, uint32(0x6c1), InstantiateCommand(true, 12).Encode())
	assert.Equal(t, uint32(0x901), InstantiateCommand(false, 0).Encode())
	assert.Equal(t, uint32(0x4903), GenerateCommand(4).Encode())
	assert.Equal(t, uint32(0x905), UninstantiateCommand().Encode())

	c := Command{Acmd: AcmdGenerate, Clen: 3, Flag0: 0xa, Glen: 0x1234}
	assert.Equal(t, c, DecodeCommand(c.Encode()))
}

func TestParseMultiBitBool(t *testing.T) {
	for raw := uint32(0); raw < 16; raw++ {
		want := MuBiInvalid
		switch raw {
		case 6:
			want = MuBiTrue
		case 9:
			want = MuBiFalse
		}
		assert.Equal(t, want, ParseMultiBitBool(raw), "raw=%d", raw)
	}
	assert.Equal(t, "invalid", MuBiInvalid.String())
}

func TestAcmdString(t *testing.T) {
	assert.Equal(t, "GENERATE", AcmdGenerate.String())
	assert.Equal(t, "ACMD(2)", Acmd(2).String())
}
