// Package endpoint writes values to device control files such as the
// attributes under /sys/class/leds.
package endpoint

import (
	"errors"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/dokzlo13/ledhal/internal/lights"
	"github.com/dokzlo13/ledhal/internal/metrics"
)

// Writer applies a single value to a named control endpoint.
type Writer interface {
	WriteInt(path string, value int) error
	WriteString(path string, value string) error
}

// Sysfs writes to control files. Each write opens the file read-write,
// writes the value followed by a newline and closes it again.
//
// When an endpoint cannot be opened a warning is logged the first time only;
// later failures on the same endpoint are silent. Writes are never retried.
type Sysfs struct {
	mu     sync.Mutex
	warned map[string]bool
}

// NewSysfs creates a sysfs writer.
func NewSysfs() *Sysfs {
	return &Sysfs{warned: make(map[string]bool)}
}

// WriteInt writes a decimal integer.
func (s *Sysfs) WriteInt(path string, value int) error {
	return s.write(path, strconv.Itoa(value))
}

// WriteString writes text as-is.
func (s *Sysfs) WriteString(path string, value string) error {
	return s.write(path, value)
}

func (s *Sysfs) write(path, value string) error {
	// No O_CREATE/O_TRUNC: sysfs attributes reject them and a missing
	// attribute means the feature is absent.
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if s.firstFailure(path) {
			log.Warn().Err(err).Str("endpoint", path).Msg("Failed to open control endpoint")
		}
		metrics.EndpointWrite(path, false)
		return ioError("open", path, err)
	}

	_, werr := f.WriteString(value + "\n")
	cerr := f.Close()
	if werr != nil {
		metrics.EndpointWrite(path, false)
		return ioError("write", path, werr)
	}
	if cerr != nil {
		metrics.EndpointWrite(path, false)
		return ioError("close", path, cerr)
	}

	metrics.EndpointWrite(path, true)
	return nil
}

// firstFailure records an open failure and reports whether it is the first
// one seen for the endpoint.
func (s *Sysfs) firstFailure(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.warned[path] {
		return false
	}
	s.warned[path] = true
	return true
}

func ioError(op, path string, err error) error {
	var errno unix.Errno
	errors.As(err, &errno)
	return &lights.Error{
		Kind:     lights.IOFailure,
		Op:       op,
		Endpoint: path,
		Errno:    errno,
		Err:      err,
	}
}
