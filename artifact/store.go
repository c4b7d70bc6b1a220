// Package artifact stores the blobs a benchmark run produces: generated
// audio under storage/audio and transcript text under storage/transcripts.
//
// Filenames are derived from the owning run item so the network layer can
// serve them back by name: audio_{item_id}.{ext} and transcript_{item_id}.txt.
// Artifacts are written once before the item completes and are read-only
// afterwards; they are removed only when their run is purged.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AltairaLabs/speechbench/audio"
)

// Kind distinguishes the two artifact classes.
type Kind string

const (
	KindAudio      Kind = "audio"
	KindTranscript Kind = "transcript"
)

// ErrNotFound is returned when a requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

const (
	audioSubdir      = "audio"
	transcriptSubdir = "transcripts"

	dirPerm  = 0750
	filePerm = 0600
)

// Record describes a stored artifact.
type Record struct {
	Kind        Kind
	Filename    string
	Path        string
	ContentType string
	Bytes       int
}

// Store is a local filesystem artifact store rooted at a base directory.
// Writes are keyed by unique item id, so concurrent items never collide.
type Store struct {
	baseDir string
}

// NewStore creates the store and its audio/transcripts subdirectories.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	for _, sub := range []string{audioSubdir, transcriptSubdir} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), dirPerm); err != nil {
			return nil, fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}
	return &Store{baseDir: baseDir}, nil
}

// BaseDir returns the store root.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// SaveAudio writes synthesized audio for a run item. The extension is
// derived from the content type, mp3 and wav being the common cases.
func (s *Store) SaveAudio(itemID string, data []byte, contentType string) (*Record, error) {
	ext := audio.ExtensionFor(contentType)
	filename := fmt.Sprintf("audio_%s.%s", sanitize(itemID), ext)

	path, err := s.write(audioSubdir, filename, data)
	if err != nil {
		return nil, err
	}
	return &Record{
		Kind:        KindAudio,
		Filename:    filename,
		Path:        path,
		ContentType: contentType,
		Bytes:       len(data),
	}, nil
}

// SaveTranscript writes a transcript for a run item as plain text.
func (s *Store) SaveTranscript(itemID, transcript string) (*Record, error) {
	filename := fmt.Sprintf("transcript_%s.txt", sanitize(itemID))

	path, err := s.write(transcriptSubdir, filename, []byte(transcript))
	if err != nil {
		return nil, err
	}
	return &Record{
		Kind:        KindTranscript,
		Filename:    filename,
		Path:        path,
		ContentType: "text/plain",
		Bytes:       len(transcript),
	}, nil
}

// Open returns the stored blob and its content type by kind and filename.
// The filename must be one the store itself generated; anything that would
// escape the store directory is rejected.
func (s *Store) Open(kind Kind, filename string) ([]byte, string, error) {
	sub, err := subdirFor(kind)
	if err != nil {
		return nil, "", err
	}

	path := filepath.Join(s.baseDir, sub, filename)
	if err := s.validatePath(path); err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, "", fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, contentTypeFor(kind, filename), nil
}

// Remove deletes an artifact. Missing files are not an error so purges
// are idempotent.
func (s *Store) Remove(kind Kind, filename string) error {
	sub, err := subdirFor(kind)
	if err != nil {
		return err
	}

	path := filepath.Join(s.baseDir, sub, filename)
	if err := s.validatePath(path); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// write stores the blob atomically: temp file then rename, so a crashed
// process never leaves a half-written artifact under the final name.
func (s *Store) write(subdir, filename string, data []byte) (string, error) {
	path := filepath.Join(s.baseDir, subdir, filename)
	if err := s.validatePath(path); err != nil {
		return "", err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, filePerm); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}
	return path, nil
}

// validatePath checks that the resolved path stays inside the base
// directory, rejecting traversal through crafted filenames.
func (s *Store) validatePath(path string) error {
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase = filepath.Clean(absBase)
	absPath = filepath.Clean(absPath)

	if absPath != absBase &&
		!strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path %q is outside artifact store", path)
	}
	return nil
}

func subdirFor(kind Kind) (string, error) {
	switch kind {
	case KindAudio:
		return audioSubdir, nil
	case KindTranscript:
		return transcriptSubdir, nil
	default:
		return "", fmt.Errorf("unknown artifact kind: %s", kind)
	}
}

func contentTypeFor(kind Kind, filename string) string {
	if kind == KindTranscript {
		return "text/plain"
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

// sanitize replaces characters that are unsafe in filenames. Item IDs are
// UUIDs in practice, so this only matters for hand-crafted inputs.
func sanitize(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"..", "_",
	)
	return replacer.Replace(name)
}
