// Package artifact stores job artifacts on the local filesystem: uploaded
// audio, transcript JSON (raw and edited), cached summaries, and rendered
// exports. Every read of a user-named file goes through containment checks
// so requests cannot escape the managed directories.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meetmemo/meetmemo/internal/apperr"
)

// Dirs names the directories the store manages.
type Dirs struct {
	Uploads           string
	Transcripts       string
	TranscriptsEdited string
	Summaries         string
	Exports           string
}

// Store is a filesystem artifact store rooted at a fixed set of directories.
type Store struct {
	dirs Dirs
}

// NewStore creates a store over the given directories. The directories must
// already exist.
func NewStore(dirs Dirs) *Store {
	return &Store{dirs: dirs}
}

// UploadDir returns the audio upload directory.
func (s *Store) UploadDir() string { return s.dirs.Uploads }

// ExportDir returns the rendered export directory.
func (s *Store) ExportDir() string { return s.dirs.Exports }

// SaveUpload streams r into the upload directory under name, returning the
// SHA-256 hex digest and byte size of the written file. maxSize of zero
// disables the size limit; exceeding it aborts the write and removes the
// partial file.
func (s *Store) SaveUpload(name string, r io.Reader, maxSize int64) (hash string, size int64, err error) {
	path, err := ResolveWithin(s.dirs.Uploads, name)
	if err != nil {
		return "", 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("artifact: create upload: %w", err)
	}

	h := sha256.New()
	limited := io.Reader(r)
	if maxSize > 0 {
		limited = io.LimitReader(r, maxSize+1)
	}
	size, err = io.Copy(io.MultiWriter(f, h), limited)
	closeErr := f.Close()

	switch {
	case err != nil:
		os.Remove(path)
		return "", 0, fmt.Errorf("artifact: write upload: %w", err)
	case closeErr != nil:
		os.Remove(path)
		return "", 0, fmt.Errorf("artifact: close upload: %w", closeErr)
	case maxSize > 0 && size > maxSize:
		os.Remove(path)
		return "", 0, &apperr.Error{Kind: apperr.KindTooLarge, Msg: fmt.Sprintf("file exceeds %d byte limit", maxSize)}
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// OpenUpload opens an uploaded audio file for reading, with containment
// enforcement. Missing files map to a not-found error.
func (s *Store) OpenUpload(name string) (*os.File, os.FileInfo, error) {
	path, err := ResolveWithin(s.dirs.Uploads, name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, apperr.NotFound("file not found")
		}
		return nil, nil, fmt.Errorf("artifact: open upload: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("artifact: stat upload: %w", err)
	}
	return f, info, nil
}

// RenameUpload moves an uploaded file to a new name inside the upload
// directory.
func (s *Store) RenameUpload(oldName, newName string) error {
	oldPath, err := ResolveWithin(s.dirs.Uploads, oldName)
	if err != nil {
		return err
	}
	newPath, err := ResolveWithin(s.dirs.Uploads, newName)
	if err != nil {
		return err
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.NotFound("file not found")
		}
		return fmt.Errorf("artifact: rename upload: %w", err)
	}
	return nil
}

// RemoveUpload deletes an uploaded file. Absent files are not an error.
func (s *Store) RemoveUpload(name string) error {
	path, err := ResolveWithin(s.dirs.Uploads, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("artifact: remove upload: %w", err)
	}
	return nil
}

// ListUploads returns the names of all files in the upload directory.
func (s *Store) ListUploads() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(s.dirs.Uploads)
	if err != nil {
		return nil, fmt.Errorf("artifact: list uploads: %w", err)
	}
	return entries, nil
}

// Transcript artifacts are keyed by the audio file's basename (so they
// follow the file through renames) and stored as <base>.json.

// ReadTranscript returns the raw transcript for base, preferring the edited
// copy when one exists. The second return reports whether the edited copy
// was used.
func (s *Store) ReadTranscript(base string) ([]byte, bool, error) {
	data, err := s.read(s.dirs.TranscriptsEdited, base+".json")
	if err == nil {
		return data, true, nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, false, err
	}
	data, err = s.read(s.dirs.Transcripts, base+".json")
	return data, false, err
}

// WriteTranscript stores the original (unedited) transcript for base.
func (s *Store) WriteTranscript(base string, data []byte) error {
	return s.write(s.dirs.Transcripts, base+".json", data)
}

// WriteEditedTranscript stores an edited transcript for base. Callers must
// invalidate the cached summary separately.
func (s *Store) WriteEditedTranscript(base string, data []byte) error {
	return s.write(s.dirs.TranscriptsEdited, base+".json", data)
}

// RenameTranscripts moves the transcript artifacts from oldBase to newBase
// so they keep tracking a renamed audio file. Absent artifacts are skipped.
func (s *Store) RenameTranscripts(oldBase, newBase string) error {
	for _, dir := range []string{s.dirs.Transcripts, s.dirs.TranscriptsEdited} {
		oldPath, err := ResolveWithin(dir, oldBase+".json")
		if err != nil {
			return err
		}
		newPath, err := ResolveWithin(dir, newBase+".json")
		if err != nil {
			return err
		}
		if err := os.Rename(oldPath, newPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("artifact: rename transcript: %w", err)
		}
	}
	return nil
}

// Summaries are cached as opaque text keyed by job ID.

// ReadSummary returns the cached summary for jobID.
func (s *Store) ReadSummary(jobID string) ([]byte, error) {
	return s.read(s.dirs.Summaries, jobID+".txt")
}

// WriteSummary caches a summary for jobID.
func (s *Store) WriteSummary(jobID string, data []byte) error {
	return s.write(s.dirs.Summaries, jobID+".txt", data)
}

// RemoveSummary invalidates the cached summary for jobID. Absent files are
// not an error.
func (s *Store) RemoveSummary(jobID string) error {
	return s.remove(s.dirs.Summaries, jobID+".txt")
}

// RemoveJobArtifacts deletes every per-job artifact: both transcript copies
// (keyed by audio basename) and the cached summary (keyed by job ID). The
// audio file is removed separately via RemoveUpload.
func (s *Store) RemoveJobArtifacts(base, jobID string) error {
	for _, dir := range []string{s.dirs.Transcripts, s.dirs.TranscriptsEdited} {
		if err := s.remove(dir, base+".json"); err != nil {
			return err
		}
	}
	return s.RemoveSummary(jobID)
}

// WriteExport stores a rendered export file and returns its absolute path.
func (s *Store) WriteExport(name string, data []byte) (string, error) {
	path, err := ResolveWithin(s.dirs.Exports, name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write export: %w", err)
	}
	return path, nil
}

// OpenExport opens a rendered export file for download.
func (s *Store) OpenExport(name string) (*os.File, os.FileInfo, error) {
	path, err := ResolveWithin(s.dirs.Exports, name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, apperr.NotFound("export file not found")
		}
		return nil, nil, fmt.Errorf("artifact: open export: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("artifact: stat export: %w", err)
	}
	return f, info, nil
}

// RemoveExport deletes a rendered export file. Absent files are not an error.
func (s *Store) RemoveExport(name string) error {
	return s.remove(s.dirs.Exports, filepath.Base(name))
}

func (s *Store) read(dir, name string) ([]byte, error) {
	path, err := ResolveWithin(dir, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.NotFound("artifact not found")
		}
		return nil, fmt.Errorf("artifact: read %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) write(dir, name string, data []byte) error {
	path, err := ResolveWithin(dir, name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("artifact: write %s: %w", name, err)
	}
	return nil
}

func (s *Store) remove(dir, name string) error {
	path, err := ResolveWithin(dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("artifact: remove %s: %w", name, err)
	}
	return nil
}
