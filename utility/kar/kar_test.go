// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devblok/raft/utility/kar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func buildArchive(t *testing.T, files map[string]string, order ...string) []byte {
	t.Helper()
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close()

	for _, name := range order {
		if err := builder.Add(name, strings.NewReader(files[name])); err != nil {
			t.Fatal(err)
		}
	}

	buf := bytes.NewBuffer([]byte{})
	written, err := builder.WriteTo(buf)
	if err != nil {
		t.Fatal(err)
	}
	if written != int64(buf.Len()) {
		t.Fatalf("reported %d bytes written, buffer holds %d", written, buf.Len())
	}
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	data := buildArchive(t, map[string]string{"test": testString1, "test2": testString2}, "test", "test2")

	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	f, err := ar.Open("test2")
	if err != nil {
		t.Fatal(err)
	}

	result, err := ioutil.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if string(result) != testString2 {
		t.Errorf("test string does not match up: %q", result)
	}
	if f.Size() != int64(len(testString2)) {
		t.Errorf("bad size: %d", f.Size())
	}
}

func TestCreateAndReadAll(t *testing.T) {
	data := buildArchive(t, map[string]string{"test": testString1, "test2": testString2}, "test", "test2")

	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]string{"test": testString1, "test2": testString2} {
		f, err := ar.ReadAll(name)
		if err != nil {
			t.Fatal(err)
		}
		if string(f) != want {
			t.Errorf("%s: test string does not match up", name)
		}
	}

	header := ar.Header()
	if header.Author != "devblok" || header.Version != 1 {
		t.Errorf("header not preserved: %+v", header)
	}
	if names := ar.Names(); len(names) != 2 || names[0] != "test" || names[1] != "test2" {
		t.Errorf("bad names: %v", names)
	}
}

func TestReadMissing(t *testing.T) {
	data := buildArchive(t, map[string]string{"test": testString1}, "test")

	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ar.ReadAll("nope"); err == nil || !strings.Contains(err.Error(), kar.ErrNotFound.Error()) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestOpenNotAnArchive(t *testing.T) {
	if _, err := kar.Open(strings.NewReader("PK\x03\x04 definitely a zip")); err != kar.ErrFileFormat {
		t.Errorf("expected ErrFileFormat, got %v", err)
	}
	if _, err := kar.Open(strings.NewReader("KA")); err != kar.ErrFileFormat {
		t.Errorf("expected ErrFileFormat for a short file, got %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	large := strings.Repeat(testString1, 1000)
	data := buildArchive(t, map[string]string{"shaders/vert.spv": large, "shaders/frag.spv": testString2},
		"shaders/vert.spv", "shaders/frag.spv")

	dir, err := ioutil.TempDir("", "kartest")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "test.kar")
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	ar, err := kar.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ar.Close()

	got, err := ar.ReadAll("shaders/vert.spv")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != large {
		t.Error("large file does not match up")
	}
	header := ar.Header()
	if entry, _ := header.Find("shaders/vert.spv"); entry.CompressedSize >= entry.Size {
		t.Errorf("repetitive data did not compress: %d >= %d", entry.CompressedSize, entry.Size)
	}
}
