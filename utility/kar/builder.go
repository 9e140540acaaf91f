// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
)

// NewBuilder creates a new Builder. Do not fill the Index in
// the header, it will be overwritten anyway.
func NewBuilder(header Header) (*Builder, error) {
	temp, err := ioutil.TempDir("", "karBuilder")
	if err != nil {
		return nil, errors.Wrap(ErrTempFail, err.Error())
	}
	return &Builder{
		tempDir: temp,
		header:  header,
	}, nil
}

type tempFile struct {

	// Name is the actual name of the file
	Name string

	// TempName is the temporary name given by the Builder
	TempName string

	// Size in uncompressed state
	Size int64

	Compressed int64
}

// Builder is the high level builder for the archive format.
// Arhives are versioned and cannot be appended to, This Builder
// is the way to create an archive. Whenever Add is called, Builder
// compresses the data into its temporary dir, then finally bundles
// the files togeter and writes them out with WriteTo.
// Close removes the temporary dir.
type Builder struct {
	tempDir string
	header  Header

	mutex sync.Mutex
	next  int
	files []tempFile
}

// Add appends data read from r to the builder with a given name.
// Will block until lz4 finishes compression. Is safe
// to use concurrently in different goroutines.
func (b *Builder) Add(name string, r io.Reader) error {
	b.mutex.Lock()
	for _, f := range b.files {
		if f.Name == name {
			b.mutex.Unlock()
			return errors.Errorf("kar: %q added twice", name)
		}
	}
	b.next++
	tempName := strconv.Itoa(b.next)
	b.mutex.Unlock()

	f, err := os.Create(filepath.Join(b.tempDir, tempName))
	if err != nil {
		return errors.Wrap(ErrTempFail, err.Error())
	}
	defer f.Close()

	writer := lz4.NewWriter(f)
	written, err := io.Copy(writer, r)
	if err != nil {
		return errors.Wrapf(err, "kar: compress %q", name)
	}
	if err := writer.Close(); err != nil {
		return errors.Wrapf(err, "kar: compress %q", name)
	}
	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(ErrTempFail, err.Error())
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.files = append(b.files, tempFile{
		Name:       name,
		TempName:   tempName,
		Size:       written,
		Compressed: info.Size(),
	})
	return nil
}

// Len returns the number of files added so far.
func (b *Builder) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.files)
}

// WriteTo bundles and writes all of the files added to the Builder
// into a kar archive that is ready to use.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := b.header
	header.Index = nil
	var offset int64
	for _, v := range b.files {
		header.Index = append(header.Index, IndexEntry{
			Name:           v.Name,
			Size:           v.Size,
			CompressedSize: v.Compressed,
			Offset:         offset,
		})
		offset += v.Compressed
	}

	rawHeader, err := gobEncode(header)
	if err != nil {
		return 0, errors.Wrap(err, "kar: encode header")
	}

	var total int64
	for _, chunk := range [][]byte{Magic[:], int64ToBinary(int64(len(rawHeader))), rawHeader} {
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	for _, v := range b.files {
		n, err := b.copyTemp(w, v)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (b *Builder) copyTemp(w io.Writer, v tempFile) (int64, error) {
	f, err := os.Open(filepath.Join(b.tempDir, v.TempName))
	if err != nil {
		return 0, errors.Wrap(ErrTempFail, err.Error())
	}
	defer f.Close()
	n, err := io.Copy(w, f)
	if err == nil && n != v.Compressed {
		err = errors.Errorf("kar: %q changed while building", v.Name)
	}
	return n, err
}

// Close removes the temporary files of the builder.
func (b *Builder) Close() error {
	return os.RemoveAll(b.tempDir)
}
