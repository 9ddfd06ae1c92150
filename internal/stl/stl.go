// Package stl writes meshes in the binary STL format.
//
// Layout, all little-endian:
//
//	80 bytes   header (ignored by readers)
//	uint32     triangle count
//	per triangle, 50 bytes:
//	  12 x float32  normal, vertex 1, vertex 2, vertex 3
//	  uint16        attribute byte count (always 0)
package stl

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/ironsheep/relief-tools-mcp/internal/mesh"
)

const (
	// HeaderSize is the size of the fixed STL header.
	HeaderSize = 80

	// TriangleSize is the encoded size of one facet.
	TriangleSize = 50
)

var header = func() [HeaderSize]byte {
	var h [HeaderSize]byte
	copy(h[:], "binary STL relief layer")
	return h
}()

// Size returns the encoded size of a mesh with n triangles.
func Size(n int) int {
	return HeaderSize + 4 + TriangleSize*n
}

// Marshal encodes m as a binary STL document.
func Marshal(m *mesh.Mesh) ([]byte, error) {
	n := m.Len()
	if uint64(n) > math.MaxUint32 {
		return nil, fmt.Errorf("stl: %d triangles exceed the format limit", n)
	}

	buf := make([]byte, Size(n))
	copy(buf, header[:])
	binary.LittleEndian.PutUint32(buf[HeaderSize:], uint32(n))

	off := HeaderSize + 4
	for _, tri := range m.Triangles {
		off = putVec(buf, off, tri.Normal())
		for _, v := range tri.V {
			off = putVec(buf, off, v)
		}
		binary.LittleEndian.PutUint16(buf[off:], 0)
		off += 2
	}
	return buf, nil
}

func putVec(buf []byte, off int, v mesh.Vec3) int {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(float32(v.Z)))
	return off + 12
}

// Encode writes m to w as binary STL.
func Encode(w io.Writer, m *mesh.Mesh) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("stl: write: %w", err)
	}
	return nil
}

// FileName returns the STL file name for a named layer.
func FileName(layerName string) string {
	return layerName + ".stl"
}

// File is one encoded STL document ready to be written to disk.
type File struct {
	Name string
	Data []byte
}

// WriteFiles writes every file into dir and returns their paths.
//
// All files are first written to temporary names in dir. Existing targets are
// then moved aside while the new files are renamed into place, and put back if
// any rename fails, so a failed call leaves dir as it found it.
func WriteFiles(dir string, files []File) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("stl: create output directory: %w", err)
	}

	staged := make([]string, 0, len(files))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()
	for _, f := range files {
		tmp, err := stage(dir, f)
		if err != nil {
			return nil, err
		}
		staged = append(staged, tmp)
	}

	done := make([]replacement, 0, len(files))
	for i, f := range files {
		r, err := replace(filepath.Join(dir, f.Name), staged[i])
		if err != nil {
			for j := len(done) - 1; j >= 0; j-- {
				done[j].undo()
			}
			return nil, err
		}
		done = append(done, r)
	}

	paths := make([]string, len(done))
	for i, r := range done {
		r.commit()
		paths[i] = r.path
	}
	return paths, nil
}

// stage writes f to a hidden temporary file in dir and returns its name.
func stage(dir string, f File) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+f.Name+".*")
	if err != nil {
		return "", fmt.Errorf("stl: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(f.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("stl: write %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("stl: close %s: %w", f.Name, err)
	}
	return tmpName, nil
}

// replacement records one file renamed into place and the earlier file it
// displaced, if any.
type replacement struct {
	path   string
	backup string
}

// replace moves an existing regular file at path aside and renames tmp to
// path. On failure the earlier file is back in place.
func replace(path, tmp string) (replacement, error) {
	r := replacement{path: path}
	if fi, err := os.Lstat(path); err == nil && fi.Mode().IsRegular() {
		b, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".old.*")
		if err != nil {
			return r, fmt.Errorf("stl: create backup: %w", err)
		}
		b.Close()
		if err := os.Rename(path, b.Name()); err != nil {
			os.Remove(b.Name())
			return r, fmt.Errorf("stl: back up %s: %w", filepath.Base(path), err)
		}
		r.backup = b.Name()
	}
	if err := os.Rename(tmp, path); err != nil {
		if r.backup != "" {
			os.Rename(r.backup, path)
		}
		return r, fmt.Errorf("stl: rename %s: %w", filepath.Base(path), err)
	}
	return r, nil
}

// undo removes the new file and restores the one it displaced.
func (r replacement) undo() {
	if r.backup != "" {
		os.Rename(r.backup, r.path)
		return
	}
	os.Remove(r.path)
}

// commit drops the displaced file.
func (r replacement) commit() {
	if r.backup != "" {
		os.Remove(r.backup)
	}
}
