package logger

import (
	"go.uber.org/zap"
)

// Log is the process-wide logger. Init replaces it; until then it is a nop
// logger so packages can log safely from tests.
var Log = zap.NewNop()

// Init builds the global logger. Debug mode switches to the human-readable
// development encoder.
func Init(debug bool) error {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Log.Sync()
}
