package endpoint

import (
	"strconv"
	"sync"
)

// Write is one recorded endpoint write.
type Write struct {
	Path  string
	Value string
}

// Recorder is an in-memory Writer. It is used for dry runs and tests.
type Recorder struct {
	mu     sync.Mutex
	writes []Write
	fail   map[string]error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{fail: make(map[string]error)}
}

// FailOn makes every write to path return err. The write is still recorded.
func (r *Recorder) FailOn(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[path] = err
}

func (r *Recorder) WriteInt(path string, value int) error {
	return r.WriteString(path, strconv.Itoa(value))
}

func (r *Recorder) WriteString(path string, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, Write{Path: path, Value: value})
	return r.fail[path]
}

// Writes returns a copy of everything written so far.
func (r *Recorder) Writes() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Write(nil), r.writes...)
}

// Reset drops recorded writes.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = nil
}
