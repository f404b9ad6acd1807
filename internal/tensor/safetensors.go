package tensor

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

const (
	headerLenSize = 8
	headerAlign   = 8
	maxHeaderSize = 100 << 20
	metadataKey   = "__metadata__"
)

// ErrInvalidContainer is returned when a safetensors stream cannot be decoded.
var ErrInvalidContainer = errors.New("invalid safetensors container")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type headerEntry struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Encode writes c to w in the safetensors format. Tensors are laid out in
// name order so equal collections always produce identical bytes.
func Encode(w io.Writer, c Collection) error {
	names := c.Names()
	header := make(map[string]headerEntry, len(names))
	var offset int64
	for _, name := range names {
		t := c[name]
		if t == nil {
			return fmt.Errorf("%w: tensor %q is nil", ErrInvalidTensor, name)
		}
		if err := t.validate(); err != nil {
			return fmt.Errorf("tensor %q: %w", name, err)
		}
		shape := []int(t.Shape)
		if shape == nil {
			shape = []int{}
		}
		end := offset + int64(t.Size())
		header[name] = headerEntry{DType: t.DType.Wire(), Shape: shape, DataOffsets: [2]int64{offset, end}}
		offset = end
	}

	raw, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for len(raw)%headerAlign != 0 {
		raw = append(raw, ' ')
	}

	var size [headerLenSize]byte
	binary.LittleEndian.PutUint64(size[:], uint64(len(raw)))
	if _, err := w.Write(size[:]); err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	for _, name := range names {
		if _, err := w.Write(c[name].Data); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a safetensors stream. The free-form "__metadata__" entry is ignored.
func Decode(r io.Reader) (Collection, error) {
	var size [headerLenSize]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, fmt.Errorf("%w: read header size: %v", ErrInvalidContainer, err)
	}
	n := binary.LittleEndian.Uint64(size[:])
	if n > maxHeaderSize {
		return nil, fmt.Errorf("%w: header size %d exceeds limit", ErrInvalidContainer, n)
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidContainer, err)
	}

	var entries map[string]jsoniter.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse header: %v", ErrInvalidContainer, err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read data: %v", ErrInvalidContainer, err)
	}

	c := make(Collection, len(entries))
	for name, msg := range entries {
		if name == metadataKey {
			continue
		}
		var e headerEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %v", ErrInvalidContainer, name, err)
		}
		dtype, err := ParseDType(e.DType)
		if err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %v", ErrInvalidContainer, name, err)
		}
		begin, end := e.DataOffsets[0], e.DataOffsets[1]
		if begin < 0 || end < begin || end > int64(len(data)) {
			return nil, fmt.Errorf("%w: tensor %q: offsets [%d, %d] out of range", ErrInvalidContainer, name, begin, end)
		}
		t, err := New(dtype, Shape(e.Shape), data[begin:end:end])
		if err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %v", ErrInvalidContainer, name, err)
		}
		c[name] = t
	}
	return c, nil
}

// Load decodes the safetensors file at path.
func Load(fs afero.Fs, path string) (c Collection, err error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return Decode(bufio.NewReader(f))
}

// Save writes c to path as a safetensors file, truncating any existing file.
func Save(fs afero.Fs, path string, c Collection) (err error) {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err := Encode(w, c); err != nil {
		return err
	}
	return w.Flush()
}
