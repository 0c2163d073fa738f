package encoder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Take describes one finished recording.
type Take struct {
	Path     string
	Samples  uint64
	Duration time.Duration
}

// Recorder writes the microphone stream of one run at a time into a FLAC
// file under dir. Write is called from the capture goroutine; Start and
// Stop from the owner of the session.
type Recorder struct {
	dir string

	mu      sync.Mutex
	f       *os.File
	enc     *FlacEncoder
	path    string
	pending []int16
	err     error
}

func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir}
}

// Start opens a new take named after the script. A take already in
// progress is stopped first.
func (r *Recorder) Start(name string) (string, error) {
	if r.Recording() {
		if _, err := r.Stop(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("creating takes dir: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	path := filepath.Join(r.dir, fmt.Sprintf("%s-%s.flac", base, time.Now().Format("20060102-150405.000")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating take: %w", err)
	}
	enc, err := NewFlac(f)
	if err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}

	r.mu.Lock()
	r.f, r.enc, r.path, r.pending, r.err = f, enc, path, r.pending[:0], nil
	r.mu.Unlock()
	return path, nil
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc != nil
}

// Write appends 16-bit PCM. It is a no-op between takes. The first encode
// error stops the take from growing and is reported by Stop.
func (r *Recorder) Write(pcm []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil || r.err != nil {
		return
	}
	r.pending = append(r.pending, Samples(pcm)...)
	for len(r.pending) >= BlockSize {
		if err := r.enc.EncodeBlock(r.pending[:BlockSize]); err != nil {
			r.err = err
			return
		}
		r.pending = r.pending[BlockSize:]
	}
}

// Stop flushes the remaining samples and closes the file.
func (r *Recorder) Stop() (Take, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return Take{}, errors.New("no take in progress")
	}
	err := r.err
	if err == nil {
		err = r.enc.EncodeBlock(r.pending)
	}
	if cerr := r.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := r.f.Close(); err == nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	t := Take{
		Path:     r.path,
		Samples:  r.enc.TotalFrames(),
		Duration: time.Duration(r.enc.TotalFrames()) * time.Second / SampleRate,
	}
	r.f, r.enc, r.path, r.pending, r.err = nil, nil, "", r.pending[:0], nil
	if err != nil {
		return t, fmt.Errorf("closing take: %w", err)
	}
	return t, nil
}
