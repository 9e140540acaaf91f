// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"os"
	"testing"
	"time"
)

func TestAddAndWrite(t *testing.T) {
	builder, err := NewBuilder(Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close()

	if err := builder.Add("test", bytes.NewReader([]byte("idunvovkjnreovmegihjbrqlkmfrjnb"))); err != nil {
		t.Fatal(err)
	}
	if err := builder.Add("test2", bytes.NewReader([]byte("idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"))); err != nil {
		t.Fatal(err)
	}
	if err := builder.Add("test", bytes.NewReader(nil)); err == nil {
		t.Error("adding the same name twice should fail")
	}

	if len(builder.files) != 2 {
		t.Error("incorrect number of files present")
	}

	buf := bytes.NewBuffer([]byte{})
	num, err := builder.WriteTo(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), Magic[:]) {
		t.Error("archive does not start with the magic")
	}
	t.Logf("written %d \n", num)
}

func TestCloseRemovesTemp(t *testing.T) {
	builder, err := NewBuilder(Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := builder.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(builder.tempDir); !os.IsNotExist(err) {
		t.Errorf("temp dir still present: %v", err)
	}
}

func TestHeaderSizeEncoding(t *testing.T) {
	for _, n := range []int64{0, 1, 255, 1 << 40} {
		got, err := binaryToint64(int64ToBinary(n))
		if err != nil {
			t.Fatal(err)
		}
		if got != n {
			t.Errorf("%d encoded back as %d", n, got)
		}
	}
	if _, err := binaryToint64([]byte{1, 2}); err != ErrFileFormat {
		t.Errorf("short input should be a format error, got %v", err)
	}
}
