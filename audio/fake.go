package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
)

// FrameSamples is one 20ms capture chunk at SampleRate.
const FrameSamples = 320

// ReadWAV returns the PCM payload of a 16kHz mono 16-bit WAV file.
func ReadWAV(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading wav: %w", err)
	}
	pcm, err := parseWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pcm, nil
}

func parseWAV(data []byte) ([]byte, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}
	sawFmt := false
	for pos := 12; pos+8 <= len(data); {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := data[pos+8:]
		if size > len(body) {
			size = len(body)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New("short fmt chunk")
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			channels := binary.LittleEndian.Uint16(body[2:4])
			rate := binary.LittleEndian.Uint32(body[4:8])
			bits := binary.LittleEndian.Uint16(body[14:16])
			if format != 1 || channels != Channels || rate != SampleRate || bits != 8*BytesPerSample {
				return nil, fmt.Errorf("want %dHz mono 16-bit PCM, got format=%d channels=%d rate=%d bits=%d",
					SampleRate, format, channels, rate, bits)
			}
			sawFmt = true
		case "data":
			if !sawFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			return body[:size], nil
		}
		pos += 8 + size + size%2
	}
	return nil, errors.New("no data chunk")
}

// FakeContext is a capture context backed by PCM in memory. Its single
// device delivers the whole buffer in FrameSamples chunks when started.
type FakeContext struct {
	pcm []byte
}

func NewFakeContext(wavPath string) (*FakeContext, error) {
	pcm, err := ReadWAV(wavPath)
	if err != nil {
		return nil, err
	}
	return &FakeContext{pcm: pcm}, nil
}

func NewFakeContextPCM(pcm []byte) *FakeContext {
	return &FakeContext{pcm: pcm}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm}, nil
}

type FakeCapture struct {
	pcm []byte

	mu     sync.Mutex
	cb     DataCallback
	frames int
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

// Frames reports how many chunks the last Start delivered.
func (f *FakeCapture) Frames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

// Start feeds every chunk before returning. Each chunk is a fresh copy, as
// a driver buffer would be.
func (f *FakeCapture) Start() error {
	f.mu.Lock()
	cb := f.cb
	f.frames = 0
	f.mu.Unlock()
	if cb == nil {
		return nil
	}
	chunkBytes := FrameSamples * BytesPerSample * Channels
	n := 0
	for pos := 0; pos < len(f.pcm); pos += chunkBytes {
		end := min(pos+chunkBytes, len(f.pcm))
		chunk := make([]byte, end-pos)
		copy(chunk, f.pcm[pos:end])
		cb(chunk, uint32(len(chunk)/(BytesPerSample*Channels)))
		n++
	}
	f.mu.Lock()
	f.frames = n
	f.mu.Unlock()
	return nil
}

func (f *FakeCapture) Stop()  {}
func (f *FakeCapture) Close() {}
