package categorizer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/models"
)

const (
	artifactFormat = "fin-insights/model"
	// ArtifactVersion is bumped whenever the persisted Model layout changes.
	ArtifactVersion = 1
)

type artifact struct {
	Format        string
	FormatVersion int
	Model         Model
}

// Save writes m to path atomically: the artifact is written to a temporary
// file in the same directory and renamed into place.
func Save(path string, m *Model) error {
	if m == nil {
		return fmt.Errorf("cannot save nil model")
	}
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move model into place: %w", err)
	}
	return nil
}

// Encode writes the gob artifact of m to w.
func Encode(w io.Writer, m *Model) error {
	a := artifact{Format: artifactFormat, FormatVersion: ArtifactVersion, Model: *m}
	if err := gob.NewEncoder(w).Encode(&a); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// Load reads a model artifact. Any failure is reported as a ModelLoadError.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &analyticserror.ModelLoadError{Path: path, Reason: "cannot open artifact", Err: err}
	}
	defer f.Close()
	return Decode(f, path)
}

// Decode reads a model artifact from r; name is used in error messages.
func Decode(r io.Reader, name string) (*Model, error) {
	var a artifact
	if err := gob.NewDecoder(r).Decode(&a); err != nil {
		return nil, &analyticserror.ModelLoadError{Path: name, Reason: "corrupt artifact", Err: err}
	}
	if a.Format != artifactFormat {
		return nil, &analyticserror.ModelLoadError{Path: name, Reason: fmt.Sprintf("unexpected format %q", a.Format)}
	}
	if a.FormatVersion != ArtifactVersion {
		return nil, &analyticserror.ModelLoadError{
			Path:   name,
			Reason: fmt.Sprintf("format version %d, expected %d", a.FormatVersion, ArtifactVersion),
		}
	}

	m := a.Model
	if err := m.init(); err != nil {
		return nil, &analyticserror.ModelLoadError{Path: name, Reason: "inconsistent model", Err: err}
	}
	// Version is the content fingerprint; any edit to the scoring data changes it.
	if sum := m.fingerprint(); sum != m.Version {
		return nil, &analyticserror.ModelLoadError{Path: name, Reason: "checksum mismatch", Err: fmt.Errorf("content fingerprint %s, artifact version %s", sum, m.Version)}
	}
	return &m, nil
}
