/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package storage

import "io"
import "os"
import "fmt"
import "bytes"
import "context"
import "path/filepath"
import "strings"
import "github.com/pierrec/lz4/v4"
import "github.com/ulikunitz/xz"

// Codec compresses library text on its way to a file.
type Codec interface {
	NewReader(r io.Reader) (io.Reader, error)
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

type plainCodec struct{}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (plainCodec) NewReader(r io.Reader) (io.Reader, error)       { return r, nil }
func (plainCodec) NewWriter(w io.Writer) (io.WriteCloser, error) { return nopWriteCloser{w}, nil }

type lz4Codec struct{}

func (lz4Codec) NewReader(r io.Reader) (io.Reader, error)       { return lz4.NewReader(r), nil }
func (lz4Codec) NewWriter(w io.Writer) (io.WriteCloser, error) { return lz4.NewWriter(w), nil }

type xzCodec struct{}

func (xzCodec) NewReader(r io.Reader) (io.Reader, error)       { return xz.NewReader(r) }
func (xzCodec) NewWriter(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) }

// CodecFor chooses the codec by file extension.
func CodecFor(path string) Codec {
	switch {
	case strings.HasSuffix(path, ".lz4"):
		return lz4Codec{}
	case strings.HasSuffix(path, ".xz"):
		return xzCodec{}
	}
	return plainCodec{}
}

func decode(c Codec, data []byte) ([]byte, error) {
	r, err := c.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func encode(c Codec, data []byte) ([]byte, error) {
	var b bytes.Buffer
	w, err := c.NewWriter(&b)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

type FileStorage struct {
	path  string
	codec Codec
}

func OpenFile(path string) *FileStorage {
	return &FileStorage{path: path, codec: CodecFor(path)}
}

func (f *FileStorage) Path() string {
	return f.path
}

func (f *FileStorage) Load(ctx context.Context) ([]byte, error) {
	raw, err := os.ReadFile(f.path)
	if len(raw) == 0 {
		// try to load backup (in case of failure while save)
		if old, err2 := os.ReadFile(f.path + ".old"); err2 == nil {
			raw, err = old, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", f.path, err)
	}
	data, err := decode(f.codec, raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return data, nil
}

func (f *FileStorage) Store(ctx context.Context, data []byte) error {
	raw, err := encode(f.codec, data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("store %s: %w", f.path, err)
	}
	if stat, err := os.Stat(f.path); err == nil && stat.Size() > 0 {
		// keep the previous version until the new one is written
		if err := os.Rename(f.path, f.path+".old"); err != nil {
			return fmt.Errorf("store %s: backup: %w", f.path, err)
		}
	}
	if err := os.WriteFile(f.path, raw, 0640); err != nil {
		return fmt.Errorf("store %s: %w", f.path, err)
	}
	os.Remove(f.path + ".old")
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}

func (f *FileStorage) String() string {
	return f.path
}
