// Package kat runs known-answer test vectors against the CSRNG model
// through its register interface.
package kat

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://csrngemu.dev/schema/kat-vectors-v1.json"

//go:embed vectors.schema.json
var schemaJSON []byte

//go:embed vectors.json
var builtinJSON []byte

// ErrInvalidVectors is returned for vector files that fail schema
// validation.
var ErrInvalidVectors = errors.New("kat: invalid vector file")

// Words is a list of 32-bit words encoded in JSON as 8-digit hex strings.
type Words []uint32

// UnmarshalJSON implements json.Unmarshaler.
func (w *Words) UnmarshalJSON(data []byte) error {
	var strs []string
	if err := json.Unmarshal(data, &strs); err != nil {
		return err
	}
	out := make(Words, len(strs))
	for i, s := range strs {
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return fmt.Errorf("word %d: %w", i, err)
		}
		out[i] = uint32(v)
	}
	*w = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (w Words) MarshalJSON() ([]byte, error) {
	strs := make([]string, len(w))
	for i, v := range w {
		strs[i] = fmt.Sprintf("%08x", v)
	}
	return json.Marshal(strs)
}

// Vector is one known-answer test.
type Vector struct {
	Name string `json:"name"`

	// Seed is written through CMD_REQ after an INSTANTIATE with flag0
	// set. Empty selects the zero seed.
	Seed Words `json:"seed,omitempty"`

	// Entropy instantiates from the device's entropy source instead.
	Entropy bool `json:"entropy,omitempty"`

	// Generate lists the glen of each GENERATE round.
	Generate []int `json:"generate"`

	// Expected is what GENBITS yields during the final round.
	Expected Words `json:"expected"`

	// ExpectedKey and ExpectedV optionally check the engine state after
	// the final round, as lowercase or uppercase hex.
	ExpectedKey string `json:"expected_key,omitempty"`
	ExpectedV   string `json:"expected_v,omitempty"`
}

type vectorFile struct {
	Version int      `json:"version"`
	Vectors []Vector `json:"vectors"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Parse validates data against the vector schema and decodes it.
func Parse(data []byte) ([]Vector, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidVectors, err)
	}
	if err := s.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidVectors, err)
	}

	var file vectorFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidVectors, err)
	}
	return file.Vectors, nil
}

// Load reads and parses a vector file.
func Load(path string) ([]Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	vectors, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vectors, nil
}

// Builtin returns the vectors shipped with the package.
func Builtin() ([]Vector, error) {
	return Parse(builtinJSON)
}

// Encode renders vectors in the file format Parse accepts.
func Encode(vectors []Vector) ([]byte, error) {
	return json.MarshalIndent(vectorFile{Version: 1, Vectors: vectors}, "", "  ")
}
