package encoder

import (
	"bytes"
	"testing"
)

func sineBlock(n int) []int16 {
	block := make([]int16, n)
	for i := range block {
		block[i] = int16((i % 200) * 100)
	}
	return block
}

func TestFlacEncoderEmptyProducesNothing(t *testing.T) {
	enc := NewFlac()
	if err := enc.Close(); err != nil {
		t.Fatalf("Close on empty encoder: %v", err)
	}
	if got := enc.Drain(); len(got) != 0 {
		t.Errorf("empty encoder drained %d bytes, want 0", len(got))
	}
	if enc.TotalFrames() != 0 {
		t.Errorf("TotalFrames = %d, want 0", enc.TotalFrames())
	}
}

func TestFlacEncoderDrainChunks(t *testing.T) {
	enc := NewFlac()

	var stream bytes.Buffer
	for range 3 {
		if err := enc.EncodeBlock(sineBlock(BlockSize)); err != nil {
			t.Fatalf("EncodeBlock: %v", err)
		}
		chunk := enc.Drain()
		if len(chunk) == 0 {
			t.Fatal("expected bytes after each block")
		}
		stream.Write(chunk)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	stream.Write(enc.Drain())

	data := stream.Bytes()
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}
	if enc.TotalFrames() != 3*BlockSize {
		t.Errorf("TotalFrames = %d, want %d", enc.TotalFrames(), 3*BlockSize)
	}
	if err := enc.EncodeBlock(sineBlock(10)); err == nil {
		t.Error("expected error encoding after Close")
	}
}

func TestDecodeFLACRoundTrip(t *testing.T) {
	enc := NewFlac()
	want := append(sineBlock(BlockSize), sineBlock(BlockSize/4)...)
	if err := enc.EncodeBlock(want[:BlockSize]); err != nil {
		t.Fatal(err)
	}
	if err := enc.EncodeBlock(want[BlockSize:]); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	got, rate, err := DecodeFLAC(enc.Drain())
	if err != nil {
		t.Fatalf("DecodeFLAC: %v", err)
	}
	if rate != SampleRate {
		t.Errorf("sample rate = %d, want %d", rate, SampleRate)
	}
	if len(got) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDecodeFLACRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeFLAC([]byte("not flac at all")); err == nil {
		t.Error("expected error for non-FLAC input")
	}
}

func TestExtension(t *testing.T) {
	for _, tt := range []struct{ mime, want string }{
		{"audio/flac", "flac"},
		{"audio/webm;codecs=opus", "webm"},
		{"audio/ogg; codecs=opus", "ogg"},
		{"AUDIO/WAV", "wav"},
		{"application/octet-stream", "bin"},
		{"", "bin"},
	} {
		t.Run(tt.mime, func(t *testing.T) {
			if got := Extension(tt.mime); got != tt.want {
				t.Errorf("Extension(%q) = %q, want %q", tt.mime, got, tt.want)
			}
		})
	}
}
