package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcmConst(v int16, n int) []byte {
	data := make([]byte, n*BytesPerSample)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return data
}

func TestLevel(t *testing.T) {
	if Level(nil) != 0 {
		t.Error("empty buffer should have zero level")
	}
	if got := Level(pcmConst(0, 160)); got != 0 {
		t.Errorf("silence level = %v", got)
	}
	if got := Level(pcmConst(16384, 160)); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("half-scale level = %v, want 0.5", got)
	}
	if got := Level(pcmConst(-16384, 160)); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("negative half-scale level = %v, want 0.5", got)
	}
	// odd trailing byte is ignored
	if got := Level(append(pcmConst(16384, 4), 0x7f)); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("odd buffer level = %v", got)
	}
}

func TestIsBluetooth(t *testing.T) {
	cases := map[string]bool{
		"AirPods Pro":                 true,
		"Built-in Microphone":         false,
		"Jabra Evolve2":               true,
		"USB Audio (BT)":              true,
		"Headset [BT]":                true,
		"Headset BT":                  false,
		"Subtitle Mic":                false,
		"alsa_input.pci-0000_00_1f.3": false,
	}
	for name, want := range cases {
		if got := IsBluetooth(name); got != want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFakeCaptureDeliversPCM(t *testing.T) {
	pcm := pcmConst(8000, FrameSamples*3+10)
	ctx := NewFakeContextPCM(pcm)
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: SampleRate, Channels: Channels})
	if err != nil {
		t.Fatal(err)
	}
	var levels []float64
	var samples uint32
	dev.SetCallback(func(data []byte, frames uint32) {
		levels = append(levels, Level(data))
		samples += frames
	})
	if err := dev.Start(); err != nil {
		t.Fatal(err)
	}
	defer dev.Stop()

	if n := dev.(*FakeCapture).Frames(); n != 4 || len(levels) != 4 {
		t.Fatalf("delivered %d chunks (%d callbacks), want 4", n, len(levels))
	}
	if samples != FrameSamples*3+10 {
		t.Errorf("samples = %d", samples)
	}
	if math.Abs(levels[0]-8000.0/32768) > 1e-9 {
		t.Errorf("first chunk level = %v", levels[0])
	}
	if dev.DeviceName() != "fake" {
		t.Errorf("DeviceName = %q", dev.DeviceName())
	}
}

func wavBytes(rate uint32, channels uint16, pcm []byte, extra ...byte) []byte {
	buf := []byte("RIFF\x00\x00\x00\x00WAVE")
	if len(extra) > 0 {
		buf = append(buf, "LIST"...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(extra)))
		buf = append(buf, extra...)
		if len(extra)%2 == 1 {
			buf = append(buf, 0)
		}
	}
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, channels)
	buf = binary.LittleEndian.AppendUint32(buf, rate)
	buf = binary.LittleEndian.AppendUint32(buf, rate*uint32(channels)*2)
	buf = binary.LittleEndian.AppendUint16(buf, channels*2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(pcm)))
	return append(buf, pcm...)
}

func TestParseWAV(t *testing.T) {
	pcm := pcmConst(1234, 50)
	got, err := parseWAV(wavBytes(SampleRate, 1, pcm, 'x', 'y', 'z'))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(pcm) {
		t.Errorf("pcm length = %d, want %d", len(got), len(pcm))
	}

	if _, err := parseWAV(wavBytes(44100, 1, pcm)); err == nil {
		t.Error("expected an error for 44.1kHz")
	}
	if _, err := parseWAV(wavBytes(SampleRate, 2, pcm)); err == nil {
		t.Error("expected an error for stereo")
	}
	if _, err := parseWAV([]byte("not a wav file at all")); err == nil {
		t.Error("expected an error for garbage")
	}
}
