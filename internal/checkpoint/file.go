package checkpoint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
)

// File format: 4-byte magic, 1-byte version, 1-byte tag, then the variant's
// fields. Integers are little-endian; big integers are a uint32 byte length
// followed by the magnitude bytes (big-endian, as produced by big.Int.Bytes).
var magic = [4]byte{'P', 'C', 'S', 'T'}

const formatVersion = 1

const (
	tagState      = 1
	tagCheckState = 2
	tagMark       = 3
)

// File is a single-state persistence file.
type File struct {
	// Path is the location of the state file.
	Path string
}

// NewFile creates a handle for the state file at path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Exists reports whether the file is present on disk.
func (f *File) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

// Remove deletes the file if present.
func (f *File) Remove() error {
	err := os.Remove(f.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

// Write persists the state atomically: the encoding is written to a temporary
// file in the same directory and renamed over the destination.
func (f *File) Write(p Position) error {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(formatVersion)

	switch s := p.(type) {
	case *State:
		buf.WriteByte(tagState)
		writeInt(&buf, s.Iter)
		writeBig(&buf, s.X)
	case *CheckState:
		buf.WriteByte(tagCheckState)
		writeInt(&buf, s.Iter)
		writeBig(&buf, s.X)
		writeBig(&buf, s.D)
	case Mark:
		buf.WriteByte(tagMark)
		writeInt(&buf, s.Iter)
	default:
		return fmt.Errorf("unknown state variant %T", p)
	}

	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit state file: %w", err)
	}
	return nil
}

// Read decodes the persisted state. An absent, truncated, or otherwise
// corrupt file reads as (nil, nil): execution starts from scratch rather than
// failing.
func (f *File) Read() (Position, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	p, ok := decode(data)
	if !ok {
		return nil, nil
	}
	return p, nil
}

// ReadState reads the file as a plain residue State. Any other content
// (including a valid file of a different variant) yields nil.
func (f *File) ReadState() *State {
	p, err := f.Read()
	if err != nil {
		return nil
	}
	s, _ := p.(*State)
	return s
}

// ReadCheckState reads the file as a CheckState. Any other content yields nil.
func (f *File) ReadCheckState() *CheckState {
	p, err := f.Read()
	if err != nil {
		return nil
	}
	s, _ := p.(*CheckState)
	return s
}

func decode(data []byte) (Position, bool) {
	r := bytes.NewReader(data)
	var hdr [6]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, false
	}
	if !bytes.Equal(hdr[:4], magic[:]) || hdr[4] != formatVersion {
		return nil, false
	}
	switch hdr[5] {
	case tagState:
		iter, ok := readInt(r)
		if !ok {
			return nil, false
		}
		x, ok := readBig(r)
		if !ok {
			return nil, false
		}
		return &State{Iter: iter, X: x}, true
	case tagCheckState:
		iter, ok := readInt(r)
		if !ok {
			return nil, false
		}
		x, ok := readBig(r)
		if !ok {
			return nil, false
		}
		d, ok := readBig(r)
		if !ok {
			return nil, false
		}
		return &CheckState{Iter: iter, X: x, D: d}, true
	case tagMark:
		iter, ok := readInt(r)
		if !ok {
			return nil, false
		}
		return Mark{Iter: iter}, true
	}
	return nil, false
}

func writeInt(buf *bytes.Buffer, v int) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func readInt(r *bytes.Reader) (int, bool) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(b[:])
	if v > uint64(1)<<62 {
		return 0, false
	}
	return int(v), true
}

func writeBig(buf *bytes.Buffer, v *big.Int) {
	b := v.Bytes()
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(b)))
	buf.Write(l[:])
	buf.Write(b)
}

func readBig(r *bytes.Reader) (*big.Int, bool) {
	var l [4]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, false
	}
	n := binary.LittleEndian.Uint32(l[:])
	if uint32(r.Len()) < n {
		return nil, false
	}
	b := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, false
		}
	}
	return new(big.Int).SetBytes(b), true
}
