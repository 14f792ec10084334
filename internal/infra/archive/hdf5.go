package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"gonum.org/v1/hdf5"
)

const (
	// DatasetName is a scalar string dataset holding the JSON-encoded entry array.
	DatasetName = "my_objects"
	FileName    = "images_data.h5"
	ContentType = "application/x-hdf5"

	TimeFormat        = "2006-01-02 15:04:05.000000"
	TimeFormatSeconds = "2006-01-02 15:04:05"
)

// Entry is one exported record. ImageContent is base64 in the JSON payload.
type Entry struct {
	ID            uint    `json:"id"`
	ImagePath     string  `json:"image_path"`
	Label         string  `json:"label"`
	ImageMetadata *string `json:"image_metadata"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	ImageContent  []byte  `json:"image_content"`
}

// FormatTime prints six fractional digits, or none when the time has no
// sub-second microseconds.
func FormatTime(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(TimeFormatSeconds)
	}
	return t.Format(TimeFormat)
}

// HDF5 writes entries into an HDF5 file. The C library is not assumed to be
// thread-safe, so every call holds mu.
type HDF5 struct {
	mu     sync.Mutex
	tmpDir string
}

// NewHDF5 returns a writer staging files in tmpDir ("" means os.TempDir()).
func NewHDF5(tmpDir string) *HDF5 {
	return &HDF5{tmpDir: tmpDir}
}

// Encode returns the bytes of an HDF5 file containing entries.
func (w *HDF5) Encode(entries []Entry) ([]byte, error) {
	tmp, err := os.CreateTemp(w.tmpDir, "export-*.h5")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)

	if err := w.WriteFile(path, entries); err != nil {
		return nil, err
	}

	return os.ReadFile(path)
}

// WriteFile creates (or truncates) path and writes entries to it as one
// NUL-terminated fixed-length string.
func (w *HDF5) WriteFile(path string, entries []Entry) error {
	payload, err := marshalEntries(entries)
	if err != nil {
		return fmt.Errorf("marshal entries: %w", err)
	}
	payload = append(payload, 0)

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("create hdf5 file: %w", err)
	}
	defer f.Close()

	space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return fmt.Errorf("create dataspace: %w", err)
	}
	defer space.Close()

	dtype, err := hdf5.T_C_S1.Copy()
	if err != nil {
		return fmt.Errorf("copy string type: %w", err)
	}
	defer dtype.Close()
	if err := dtype.SetSize(len(payload)); err != nil {
		return fmt.Errorf("size string type: %w", err)
	}

	dset, err := f.CreateDataset(DatasetName, dtype, space)
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", DatasetName, err)
	}
	defer dset.Close()

	if err := dset.Write(&payload); err != nil {
		return fmt.Errorf("write dataset %s: %w", DatasetName, err)
	}

	return nil
}

// ReadFile decodes the entries stored in an archive written by WriteFile.
func (w *HDF5) ReadFile(path string) ([]Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("open hdf5 file: %w", err)
	}
	defer f.Close()

	dset, err := f.OpenDataset(DatasetName)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", DatasetName, err)
	}
	defer dset.Close()

	dtype, err := dset.Datatype()
	if err != nil {
		return nil, fmt.Errorf("dataset %s type: %w", DatasetName, err)
	}
	defer dtype.Close()
	if dtype.Class() != hdf5.T_STRING {
		return nil, fmt.Errorf("dataset %s is not a string", DatasetName)
	}

	payload := make([]byte, dtype.Size())
	if err := dset.Read(&payload); err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", DatasetName, err)
	}
	payload = bytes.TrimRight(payload, "\x00")

	var entries []Entry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal entries: %w", err)
	}
	return entries, nil
}

// marshalEntries encodes without HTML escaping so labels and metadata keep
// their literal <, > and & characters.
func marshalEntries(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
