package bus

import (
	"fmt"
	"log/slog"
)

// Op is the direction of a register access.
type Op int

const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	if o == OpWrite {
		return "write"
	}
	return "read"
}

// Transaction is one completed register access.
type Transaction struct {
	Offset uint32
	Name   string
	Op     Op
	Value  uint32
	Err    error
}

// Observer is notified after every access to a RegisterFile.
type Observer interface {
	ObserveTransaction(tx Transaction)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(tx Transaction)

// ObserveTransaction calls f(tx).
func (f ObserverFunc) ObserveTransaction(tx Transaction) { f(tx) }

// LogObserver logs every access at debug level and failed accesses at warn.
func LogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(tx Transaction) {
		attrs := []any{
			slog.String("op", tx.Op.String()),
			slog.String("reg", tx.Name),
			slog.String("offset", hex32(tx.Offset)),
			slog.String("value", hex32(tx.Value)),
		}
		if tx.Err != nil {
			logger.Warn("register access failed", append(attrs, slog.Any("error", tx.Err))...)
			return
		}
		logger.Debug("register access", attrs...)
	})
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}
