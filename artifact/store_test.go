package artifact

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestNewStore_CreatesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	_, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	for _, sub := range []string{"audio", "transcripts"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		if err != nil {
			t.Fatalf("expected %s subdirectory: %v", sub, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", sub)
		}
	}
}

func TestNewStore_EmptyBaseDir(t *testing.T) {
	if _, err := NewStore(""); err == nil {
		t.Error("expected error for empty base dir")
	}
}

func TestSaveAudio_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	payload := []byte{0xFF, 0xFB, 0x90, 0x00, 0x01, 0x02, 0x03}

	rec, err := store.SaveAudio("item-1", payload, "audio/mpeg")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}

	if rec.Filename != "audio_item-1.mp3" {
		t.Errorf("expected audio_item-1.mp3, got %s", rec.Filename)
	}
	if rec.Kind != KindAudio {
		t.Errorf("expected audio kind, got %s", rec.Kind)
	}
	if rec.Bytes != len(payload) {
		t.Errorf("expected %d bytes, got %d", len(payload), rec.Bytes)
	}

	data, contentType, err := store.Open(KindAudio, rec.Filename)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("round-tripped audio differs from original")
	}
	if contentType != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %s", contentType)
	}
}

func TestSaveAudio_WAVExtension(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.SaveAudio("item-2", []byte("RIFFdata"), "audio/wav")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}
	if rec.Filename != "audio_item-2.wav" {
		t.Errorf("expected audio_item-2.wav, got %s", rec.Filename)
	}
}

func TestSaveTranscript_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	transcript := "the quick brown fox jumps over the lazy dog"

	rec, err := store.SaveTranscript("item-3", transcript)
	if err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}

	if rec.Filename != "transcript_item-3.txt" {
		t.Errorf("expected transcript_item-3.txt, got %s", rec.Filename)
	}
	if rec.ContentType != "text/plain" {
		t.Errorf("expected text/plain, got %s", rec.ContentType)
	}

	data, contentType, err := store.Open(KindTranscript, rec.Filename)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if string(data) != transcript {
		t.Errorf("expected %q, got %q", transcript, string(data))
	}
	if contentType != "text/plain" {
		t.Errorf("expected text/plain, got %s", contentType)
	}
}

func TestOpen_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.Open(KindAudio, "audio_missing.mp3")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.Open(Kind("video"), "whatever.mp4")
	if err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestOpen_RejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	// A file outside the store must not be reachable
	outside := filepath.Join(store.BaseDir(), "..", "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0600); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	_, _, err := store.Open(KindAudio, "../../secret.txt")
	if err == nil {
		t.Error("expected traversal to be rejected")
	}
}

func TestRemove(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.SaveAudio("item-4", []byte("data"), "audio/mpeg")
	if err != nil {
		t.Fatalf("SaveAudio failed: %v", err)
	}

	if err := store.Remove(KindAudio, rec.Filename); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, _, err := store.Open(KindAudio, rec.Filename); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after removal, got %v", err)
	}

	// Idempotent: removing again is not an error
	if err := store.Remove(KindAudio, rec.Filename); err != nil {
		t.Errorf("second Remove should succeed, got %v", err)
	}
}

func TestSaveAudio_OverwriteIsAtomicReplace(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.SaveAudio("item-5", []byte("first"), "audio/wav"); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	rec, err := store.SaveAudio("item-5", []byte("second"), "audio/wav")
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	data, _, err := store.Open(KindAudio, rec.Filename)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected second write to win, got %q", string(data))
	}

	// No temp file left behind
	if _, err := os.Stat(rec.Path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after write")
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		kind     Kind
		filename string
		want     string
	}{
		{KindAudio, "audio_1.mp3", "audio/mpeg"},
		{KindAudio, "audio_1.wav", "audio/wav"},
		{KindAudio, "audio_1.ogg", "audio/ogg"},
		{KindAudio, "audio_1.flac", "audio/flac"},
		{KindAudio, "audio_1.bin", "application/octet-stream"},
		{KindTranscript, "transcript_1.txt", "text/plain"},
	}

	for _, tt := range tests {
		if got := contentTypeFor(tt.kind, tt.filename); got != tt.want {
			t.Errorf("contentTypeFor(%s, %s) = %s, want %s", tt.kind, tt.filename, got, tt.want)
		}
	}
}
