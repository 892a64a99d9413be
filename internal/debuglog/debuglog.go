// ABOUTME: Optional file-backed debug logger for hot paths (worker pool, cache)
// ABOUTME: Off by default; enabling it mirrors the teacher's common.go SetupDebugLog/debugf pattern

// Package debuglog provides a package-level, off-by-default debug logger.
// Hot paths that would otherwise be too noisy for the standard logger
// (every worker pickup, every cache lookup) call Debugf unconditionally;
// it is a no-op until SetupDebugLog points it at a file.
package debuglog

import (
	"fmt"
	"log"
	"os"
)

var debugLog *log.Logger

// SetupDebugLog initializes debug logging to filename, printing a
// confirmation to stdout when stdout is a terminal.
func SetupDebugLog(filename string) error {
	if err := InitDebugLog(filename); err != nil {
		return fmt.Errorf("failed to initialize debug log: %w", err)
	}

	if fileInfo, err := os.Stdout.Stat(); err == nil && (fileInfo.Mode()&os.ModeCharDevice) != 0 {
		fmt.Printf("Debug logging enabled: %s\n", filename)
	}

	return nil
}

// InitDebugLog initializes debug logging to a file.
func InitDebugLog(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugLog = log.New(f, "", log.Ltime|log.Lmicroseconds)

	return nil
}

// Debugf logs debug messages to file if debug logging is enabled; a no-op
// otherwise, so hot paths can call it unconditionally.
func Debugf(format string, args ...interface{}) {
	if debugLog != nil {
		debugLog.Printf(format, args...)
	}
}
