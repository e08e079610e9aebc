//go:build !linux

package system

import (
	"os"
	"time"
)

func hostname() (string, error) {
	return os.Hostname()
}

func setHostname(string) error {
	return ErrUnsupported
}

func uname() (Uname, error) {
	return Uname{}, ErrUnsupported
}

func uptime() (time.Duration, error) {
	return 0, ErrUnsupported
}

func setTime(time.Time) error {
	return ErrUnsupported
}

func syncFS() {}
