// Package system binds the host facilities sysconfd reads and mutates:
// hostname, kernel identity, uptime, the real-time clock and buffer flushing.
package system

import (
	"errors"
	"time"
)

// ErrUnsupported is returned on platforms without the required syscalls.
var ErrUnsupported = errors.New("system: operation not supported on this platform")

// Uname holds the kernel identity fields
type Uname struct {
	Sysname string
	Release string
	Version string
	Machine string
}

// Host is the live operating system. The zero value is ready to use.
type Host struct{}

// Hostname reports the kernel hostname
func (Host) Hostname() (string, error) {
	return hostname()
}

// SetHostname sets the kernel hostname
func (Host) SetHostname(name string) error {
	return setHostname(name)
}

// Uname reports the kernel identity
func (Host) Uname() (Uname, error) {
	return uname()
}

// Uptime reports the time elapsed since boot
func (Host) Uptime() (time.Duration, error) {
	return uptime()
}

// SetTime sets the real-time clock
func (Host) SetTime(t time.Time) error {
	return setTime(t)
}

// Sync flushes filesystem buffers to disk
func (Host) Sync() {
	syncFS()
}
