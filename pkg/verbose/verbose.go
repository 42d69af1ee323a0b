package verbose

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

// SetEnabled sets the global verbose logging flag
func SetEnabled(enable bool) {
	enabled.Store(enable)
}

// IsEnabled returns whether verbose logging is enabled
func IsEnabled() bool {
	return enabled.Load()
}

// Printf prints a verbose log message if verbose logging is enabled
func Printf(format string, args ...interface{}) {
	if IsEnabled() {
		log.Printf("[VERBOSE] "+format, args...)
	}
}

// Bus traces a frame written to a bus as hex bytes
func Bus(bus string, data []byte) {
	if !IsEnabled() {
		return
	}
	log.Printf("[VERBOSE] %s <- % X", bus, data)
}

// Words traces a sequence of register words in transmission order
func Words(bus string, words []uint32) {
	if !IsEnabled() {
		return
	}
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("%08X", w)
	}
	log.Printf("[VERBOSE] %s <- [%s]", bus, strings.Join(parts, " "))
}
