package assets_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"

	"github.com/devblok/raft/assets"
	"github.com/devblok/raft/core"
	"github.com/devblok/raft/gfx/gfxtest"
	"github.com/devblok/raft/model"
	"github.com/devblok/raft/utility/kar"
)

var shaderFiles = map[string][]byte{
	"vert.spv":         gfxtest.ShaderCode(1),
	"frag.spv":         gfxtest.ShaderCode(2),
	"box/box.vert.spv": gfxtest.ShaderCode(3),
	"box/box.comp.spv": gfxtest.ShaderCode(4),
	"README":           []byte("not a shader"),
}

func writeDir(c *qt.C) string {
	dir, err := ioutil.TempDir("", "raft-assets")
	c.Assert(err, qt.IsNil)
	c.Defer(func() { os.RemoveAll(dir) })

	for name, data := range shaderFiles {
		path := filepath.Join(dir, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(path), 0755), qt.IsNil)
		c.Assert(ioutil.WriteFile(path, data, 0644), qt.IsNil)
	}
	return dir
}

func writeArchive(c *qt.C) string {
	builder, err := kar.NewBuilder(kar.Header{Author: "raft", Version: 1})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	for _, name := range []string{"vert.spv", "frag.spv", "box/box.vert.spv", "box/box.comp.spv", "README"} {
		c.Assert(builder.Add(name, bytes.NewReader(shaderFiles[name])), qt.IsNil)
	}

	f, err := ioutil.TempFile("", "raft-*.kar")
	c.Assert(err, qt.IsNil)
	c.Defer(func() { os.Remove(f.Name()) })
	_, err = builder.WriteTo(f)
	c.Assert(err, qt.IsNil)
	c.Assert(f.Close(), qt.IsNil)
	return f.Name()
}

var wantShaders = []assets.Shader{
	{Name: "box/box.vert.spv", Type: core.VertexShaderType},
	{Name: "frag.spv", Type: core.FragmentShaderType},
	{Name: "vert.spv", Type: core.VertexShaderType},
}

func TestDir(t *testing.T) {
	c := qt.New(t)
	defer c.Done()
	dir := writeDir(c)

	src := assets.Dir(dir)
	data, err := src.ReadShader("frag.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.DeepEquals, shaderFiles["frag.spv"])

	data, err = src.ReadShader("box/box.vert.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.DeepEquals, shaderFiles["box/box.vert.spv"])

	_, err = src.ReadShader("missing.spv")
	c.Assert(err, qt.ErrorMatches, "read shader: .*")
	c.Assert(os.IsNotExist(errors.Cause(err)), qt.Equals, true)

	shaders, err := src.Shaders()
	c.Assert(err, qt.IsNil)
	c.Assert(shaders, qt.DeepEquals, wantShaders)
}

func TestArchive(t *testing.T) {
	c := qt.New(t)
	defer c.Done()
	path := writeArchive(c)

	src, err := assets.OpenArchive(path)
	c.Assert(err, qt.IsNil)
	defer src.Close()

	data, err := src.ReadShader("vert.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.DeepEquals, shaderFiles["vert.spv"])

	_, err = src.ReadShader("missing.spv")
	c.Assert(errors.Cause(err), qt.Equals, kar.ErrNotFound)

	shaders, err := src.Shaders()
	c.Assert(err, qt.IsNil)
	c.Assert(shaders, qt.DeepEquals, wantShaders)
}

func TestBox(t *testing.T) {
	c := qt.New(t)
	defer c.Done()
	dir := writeDir(c)

	src := assets.NewBox(packr.NewBox(dir))
	data, err := src.ReadShader("vert.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.DeepEquals, shaderFiles["vert.spv"])

	shaders, err := src.Shaders()
	c.Assert(err, qt.IsNil)
	c.Assert(shaders, qt.DeepEquals, wantShaders)
}

func TestOpen(t *testing.T) {
	c := qt.New(t)
	defer c.Done()

	dir := writeDir(c)
	src, err := assets.Open(dir)
	c.Assert(err, qt.IsNil)
	c.Assert(src, qt.Equals, assets.Source(assets.Dir(dir)))

	archive, err := assets.Open(writeArchive(c))
	c.Assert(err, qt.IsNil)
	_, ok := archive.(*assets.Archive)
	c.Assert(ok, qt.Equals, true)
	c.Assert(archive.(*assets.Archive).Close(), qt.IsNil)

	_, err = assets.Open(filepath.Join(dir, "vert.spv"))
	c.Assert(err, qt.ErrorMatches, ".* is neither a directory nor a kar archive")

	_, err = assets.Open(filepath.Join(dir, "nowhere"))
	c.Assert(err, qt.ErrorMatches, "shader directory: .*")
}

func TestContextFromDir(t *testing.T) {
	c := qt.New(t)
	defer c.Done()
	dir := writeDir(c)

	opts := core.Options{
		Config:   core.DefaultConfiguration().Renderer,
		Surface:  &gfxtest.Surface{Name: "window"},
		Shaders:  assets.Dir(dir),
		Geometry: model.Box(1, 1, 1),
	}
	inst := gfxtest.NewInstance(gfxtest.DefaultConfig())
	ctx, err := core.New(inst, opts)
	c.Assert(err, qt.IsNil)
	defer ctx.Release()

	info := ctx.Pipeline().Handle.(*gfxtest.Pipeline).Info
	c.Assert(info.Stages[0].Module.(*gfxtest.ShaderModule).Code, qt.DeepEquals, shaderFiles["vert.spv"])
	c.Assert(info.Stages[1].Module.(*gfxtest.ShaderModule).Code, qt.DeepEquals, shaderFiles["frag.spv"])
}
