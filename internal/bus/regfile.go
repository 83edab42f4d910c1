// Package bus provides a memory-mapped register file for peripheral models.
//
// A RegisterFile maps 32-bit register offsets to a Handler pair. Plain
// storage registers are built with ReadWrite/ReadOnly; registers with side
// effects supply their own read or write function, and a Handler without
// Read is write-only. Every access
// can be reported to an Observer.
package bus

import (
	"errors"
	"fmt"
	"sort"
)

// Bus errors
var (
	ErrLoadAccessFault  = errors.New("bus: load access fault")
	ErrStoreAccessFault = errors.New("bus: store access fault")
	ErrOffsetInUse      = errors.New("bus: offset already mapped")
)

// Access describes what software may do with a register.
type Access int

const (
	AccessReadWrite Access = iota
	AccessReadOnly
	AccessWriteOnly
)

// String returns the conventional short form of the access mode.
func (a Access) String() string {
	switch a {
	case AccessReadWrite:
		return "RW"
	case AccessReadOnly:
		return "RO"
	case AccessWriteOnly:
		return "WO"
	default:
		return "??"
	}
}

// Handler implements one register. Read is nil for write-only registers
// and Write is nil for read-only registers.
type Handler struct {
	Name  string
	Read  func() uint32
	Write func(value uint32) error

	// SideEffects marks registers whose reads or writes change device
	// state beyond the stored value.
	SideEffects bool
}

// Access reports the access mode implied by the handler functions.
func (h Handler) Access() Access {
	switch {
	case h.Read != nil && h.Write != nil:
		return AccessReadWrite
	case h.Read != nil:
		return AccessReadOnly
	default:
		return AccessWriteOnly
	}
}

// Entry is one row of the register map.
type Entry struct {
	Offset      uint32
	Name        string
	Access      Access
	SideEffects bool
}

// RegisterFile dispatches accesses by offset.
type RegisterFile struct {
	handlers  map[uint32]Handler
	observers []Observer
}

// NewRegisterFile creates an empty register file.
func NewRegisterFile() *RegisterFile {
	return &RegisterFile{handlers: make(map[uint32]Handler)}
}

// Map installs h at offset.
func (rf *RegisterFile) Map(offset uint32, h Handler) error {
	if _, ok := rf.handlers[offset]; ok {
		return fmt.Errorf("%w: 0x%x", ErrOffsetInUse, offset)
	}
	rf.handlers[offset] = h
	return nil
}

// Observe registers o to be told about every subsequent access.
func (rf *RegisterFile) Observe(o Observer) {
	rf.observers = append(rf.observers, o)
}

// Read returns the value of the register at offset. Unmapped offsets
// fault; write-only registers read as zero.
func (rf *RegisterFile) Read(offset uint32) (uint32, error) {
	h, ok := rf.handlers[offset]
	var (
		value uint32
		err   error
	)
	switch {
	case !ok:
		err = fmt.Errorf("%w: read 0x%x", ErrLoadAccessFault, offset)
	case h.Read != nil:
		value = h.Read()
	}
	rf.notify(Transaction{Offset: offset, Name: h.Name, Op: OpRead, Value: value, Err: err})
	return value, err
}

// Write stores value into the register at offset.
func (rf *RegisterFile) Write(offset uint32, value uint32) error {
	h, ok := rf.handlers[offset]
	var err error
	switch {
	case !ok:
		err = fmt.Errorf("%w: write 0x%x", ErrStoreAccessFault, offset)
	case h.Write == nil:
		err = fmt.Errorf("%w: %s is read-only", ErrStoreAccessFault, h.Name)
	default:
		err = h.Write(value)
	}
	rf.notify(Transaction{Offset: offset, Name: h.Name, Op: OpWrite, Value: value, Err: err})
	return err
}

// Entries returns the register map sorted by offset.
func (rf *RegisterFile) Entries() []Entry {
	out := make([]Entry, 0, len(rf.handlers))
	for off, h := range rf.handlers {
		out = append(out, Entry{
			Offset:      off,
			Name:        h.Name,
			Access:      h.Access(),
			SideEffects: h.SideEffects,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

func (rf *RegisterFile) notify(tx Transaction) {
	for _, o := range rf.observers {
		o.ObserveTransaction(tx)
	}
}

// ReadWrite is a storage register software can read and write back.
func ReadWrite(name string, reg *uint32) Handler {
	return Handler{
		Name: name,
		Read: func() uint32 { return *reg },
		Write: func(v uint32) error {
			*reg = v
			return nil
		},
	}
}

// ReadOnly is a register with a fixed value.
func ReadOnly(name string, value uint32) Handler {
	return Handler{
		Name: name,
		Read: func() uint32 { return value },
	}
}
