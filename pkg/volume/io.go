package volume

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// On-disk layout: a small YAML document describing the geometry, next to a
// raw little-endian voxel payload it points at. Keeping the header textual
// makes volumes inspectable and diffable; the payload is the flat storage
// buffer in memory order.

// fileHeader is the YAML document stored in the header file.
type fileHeader struct {
	Header   `yaml:",inline"`
	DataFile string `yaml:"file"`
}

// Open reads a volume from disk: the YAML header at path, then the raw data
// file it names (resolved relative to the header's directory).
func Open(path string) (*Volume, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening volume header: %w", err)
	}
	var fh fileHeader
	if err := yaml.Unmarshal(raw, &fh); err != nil {
		return nil, fmt.Errorf("parsing volume header %s: %w", path, err)
	}
	if fh.DataFile == "" {
		return nil, fmt.Errorf("volume header %s names no data file", path)
	}

	v, err := New(fh.Header)
	if err != nil {
		return nil, fmt.Errorf("volume header %s: %w", path, err)
	}

	dataPath := fh.DataFile
	if !filepath.IsAbs(dataPath) {
		dataPath = filepath.Join(filepath.Dir(path), dataPath)
	}
	f, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("opening volume data: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if err := readPayload(r, v); err != nil {
		return nil, fmt.Errorf("reading volume data %s: %w", dataPath, err)
	}
	return v, nil
}

// Save writes a volume to disk as a YAML header at path plus a sibling raw
// data file with the same base name and a .dat extension.
func Save(v *Volume, path string) error {
	dataPath := dataFileFor(path)

	fh := fileHeader{Header: v.hdr, DataFile: filepath.Base(dataPath)}
	doc, err := yaml.Marshal(&fh)
	if err != nil {
		return fmt.Errorf("encoding volume header: %w", err)
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("writing volume header: %w", err)
	}

	f, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("creating volume data file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writePayload(w, v); err != nil {
		return fmt.Errorf("writing volume data %s: %w", dataPath, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing volume data %s: %w", dataPath, err)
	}
	return nil
}

func dataFileFor(headerPath string) string {
	ext := filepath.Ext(headerPath)
	return strings.TrimSuffix(headerPath, ext) + ".dat"
}

func readPayload(r *bufio.Reader, v *Volume) error {
	switch v.hdr.Type {
	case Float32:
		buf := make([]float32, v.hdr.Voxels())
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return err
		}
		for i, x := range buf {
			v.real[i] = float64(x)
		}
	case Float64:
		if err := binary.Read(r, binary.LittleEndian, v.real); err != nil {
			return err
		}
	case Complex64:
		buf := make([]complex64, v.hdr.Voxels())
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return err
		}
		for i, x := range buf {
			v.cplx[i] = complex128(x)
		}
	case Complex128:
		if err := binary.Read(r, binary.LittleEndian, v.cplx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown datatype %q", v.hdr.Type)
	}
	return nil
}

func writePayload(w *bufio.Writer, v *Volume) error {
	switch v.hdr.Type {
	case Float32:
		buf := make([]float32, len(v.real))
		for i, x := range v.real {
			buf[i] = float32(x)
		}
		return binary.Write(w, binary.LittleEndian, buf)
	case Float64:
		return binary.Write(w, binary.LittleEndian, v.real)
	case Complex64:
		buf := make([]complex64, len(v.cplx))
		for i, x := range v.cplx {
			buf[i] = complex64(x)
		}
		return binary.Write(w, binary.LittleEndian, buf)
	case Complex128:
		return binary.Write(w, binary.LittleEndian, v.cplx)
	default:
		return fmt.Errorf("unknown datatype %q", v.hdr.Type)
	}
}
