package encoder

import (
	"bytes"
	"testing"
)

func TestFlacEncoderEmpty(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewFlac(&buf)
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close on empty encoder: %v", err)
	}
	if enc.TotalFrames() != 0 {
		t.Errorf("TotalFrames = %d, want 0", enc.TotalFrames())
	}
	if buf.Len() < 4 || buf.String()[:4] != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}
}

func TestFlacEncoderPartialBlock(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewFlac(&buf)
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}

	partial := make([]int16, BlockSize/4)
	for i := range partial {
		partial[i] = int16(i % 1000)
	}

	if err := enc.EncodeBlock(partial); err != nil {
		t.Fatalf("EncodeBlock partial: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if enc.TotalFrames() != uint64(len(partial)) {
		t.Errorf("TotalFrames = %d, want %d", enc.TotalFrames(), len(partial))
	}
}

func TestFlacEncoderRejectsOversizedBlock(t *testing.T) {
	enc, err := NewFlac(&bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.EncodeBlock(make([]int16, BlockSize+1)); err == nil {
		t.Error("expected an error for a block over BlockSize")
	}
}

func TestSamples(t *testing.T) {
	got := Samples([]byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x80, 0x7f})
	want := []int16{1, -1, -32768}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}
