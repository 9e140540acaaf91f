// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package assets provides shader bytecode to the renderer from a
// directory, a packr box or a kar archive.
package assets

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/devblok/raft/core"
	"github.com/devblok/raft/utility/kar"
	"github.com/gobuffalo/packd"
	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Source is a named collection of compiled shaders
type Source interface {
	core.ShaderSource

	// Shaders lists compiled shaders whose type is recognized
	Shaders() ([]Shader, error)
}

// Shader names a compiled shader and its stage
type Shader struct {
	Name string
	Type core.ShaderType
}

func collect(shaders []Shader, name string) []Shader {
	st := core.ShaderTypeOf(filepath.Base(name))
	if st == core.UnknownShaderType {
		return shaders
	}
	return append(shaders, Shader{Name: filepath.ToSlash(name), Type: st})
}

func sorted(shaders []Shader) []Shader {
	sort.Slice(shaders, func(i, j int) bool {
		return shaders[i].Name < shaders[j].Name
	})
	return shaders
}

// Dir reads shaders from a directory on disk
type Dir string

// ReadShader implements core.ShaderSource
func (d Dir) ReadShader(name string) ([]byte, error) {
	data, err := ioutil.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
	if err != nil {
		return nil, errors.Wrap(err, "read shader")
	}
	return data, nil
}

// Shaders walks the directory for compiled shaders. Names are relative
// to the directory.
func (d Dir) Shaders() ([]Shader, error) {
	var shaders []Shader
	if err := filepath.Walk(string(d), func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(string(d), path)
		if err != nil {
			return err
		}
		shaders = collect(shaders, rel)
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "walk %s", string(d))
	}
	return sorted(shaders), nil
}

// Box reads shaders from a packr box, embedded by the packr tool or
// resolved on disk during development
type Box struct {
	box packr.Box
}

// NewBox wraps a packr box
func NewBox(box packr.Box) *Box {
	return &Box{box: box}
}

// ReadShader implements core.ShaderSource
func (b *Box) ReadShader(name string) ([]byte, error) {
	data, err := b.box.Find(name)
	if err != nil {
		return nil, errors.Wrapf(err, "box %s", b.box.Path)
	}
	return data, nil
}

// Shaders implements Source
func (b *Box) Shaders() ([]Shader, error) {
	var shaders []Shader
	if err := b.box.Walk(func(path string, _ packd.File) error {
		shaders = collect(shaders, path)
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "walk box %s", b.box.Path)
	}
	return sorted(shaders), nil
}

// Archive reads shaders from a kar archive
type Archive struct {
	archive *kar.Archive
}

// OpenArchive memory maps a kar archive from disk
func OpenArchive(path string) (*Archive, error) {
	a, err := kar.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open archive %s", path)
	}
	log.WithFields(log.Fields{
		"archive": path,
		"files":   len(a.Names()),
	}).Debug("opened shader archive")
	return &Archive{archive: a}, nil
}

// NewArchive serves shaders from an already open archive
func NewArchive(a *kar.Archive) *Archive {
	return &Archive{archive: a}
}

// ReadShader implements core.ShaderSource
func (a *Archive) ReadShader(name string) ([]byte, error) {
	data, err := a.archive.ReadAll(name)
	if err != nil {
		return nil, errors.Wrap(err, "read shader")
	}
	return data, nil
}

// Shaders implements Source
func (a *Archive) Shaders() ([]Shader, error) {
	var shaders []Shader
	for _, name := range a.archive.Names() {
		shaders = collect(shaders, name)
	}
	return sorted(shaders), nil
}

// Close releases the archive
func (a *Archive) Close() error {
	return a.archive.Close()
}

// Open picks a source for location: a kar archive when it ends in .kar,
// a directory otherwise
func Open(location string) (Source, error) {
	if strings.HasSuffix(location, ".kar") {
		return OpenArchive(location)
	}
	info, err := os.Stat(location)
	if err != nil {
		return nil, errors.Wrap(err, "shader directory")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is neither a directory nor a kar archive", location)
	}
	return Dir(location), nil
}
