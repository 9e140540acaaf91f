// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"io/ioutil"
	"os"
	"runtime"

	"github.com/gobuffalo/packr"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/raft/assets"
	"github.com/devblok/raft/core"
	"github.com/devblok/raft/device"
	"github.com/devblok/raft/model"
)

func init() {
	runtime.LockOSThread()
}

var (
	envFile  = flag.String("env", "", "Load configuration variables from this file")
	modelArg = flag.String("model", "", "Collada file to draw instead of the unit cube")
	shaders  = flag.String("shaders", "", "Shader directory or kar archive, overrides RAFT_SHADER_DIR")
	embedded = flag.Bool("embedded", false, "Read shaders from the packed resource box")
	debug    = flag.Bool("debug", false, "Enable the validation layer")
)

func main() {
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.WithError(err).Fatal("failed to load env file")
		}
	}

	cfg, err := core.LoadConfiguration()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithError(err).Warn("unknown log level, keeping default")
	}

	if err := run(cfg); err != nil {
		log.WithError(err).Error("raft exited with error")
		os.Exit(1)
	}
}

func newWindow(cfg core.RendererConfiguration) (*sdl.Window, error) {
	window, err := sdl.CreateWindow("Raft",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.ScreenWidth),
		int32(cfg.ScreenHeight),
		sdl.WINDOW_VULKAN)
	if err != nil {
		return nil, &core.PlatformError{Op: "create window", Err: err}
	}
	return window, nil
}

func shaderSource(cfg core.RendererConfiguration) (core.ShaderSource, func(), error) {
	if *embedded {
		return assets.NewBox(packr.NewBox("../../Resources/Shaders")), func() {}, nil
	}
	location := cfg.ShaderDirectory
	if *shaders != "" {
		location = *shaders
	}
	src, err := assets.Open(location)
	if err != nil {
		return nil, nil, err
	}
	if a, ok := src.(*assets.Archive); ok {
		return a, func() { a.Close() }, nil
	}
	return src, func() {}, nil
}

func geometry() (model.Primitive, error) {
	if *modelArg == "" {
		return model.Box(1, 1, 1), nil
	}
	data, err := ioutil.ReadFile(*modelArg)
	if err != nil {
		return model.Primitive{}, errors.Wrap(err, "read model")
	}
	return model.ImportCollada(data)
}

func run(cfg core.Configuration) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return &core.PlatformError{Op: "init", Err: err}
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return &core.PlatformError{Op: "load vulkan library", Err: err}
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := newWindow(cfg.Renderer)
	if err != nil {
		return err
	}
	defer window.Destroy()

	instance, err := device.NewInstance(device.DefaultApplicationInfo, sdl.VulkanGetVkGetInstanceProcAddr(), device.InstanceConfiguration{
		DebugMode:  *debug,
		Extensions: window.VulkanGetInstanceExtensions(),
	})
	if err != nil {
		return errors.Wrap(err, "create instance")
	}
	defer instance.Release()

	pSurface, err := window.VulkanCreateSurface(instance.Instance())
	if err != nil {
		return &core.PlatformError{Op: "create surface", Err: err}
	}
	surface := instance.SurfaceFromPointer(pSurface)
	defer surface.Release()

	src, closeSource, err := shaderSource(cfg.Renderer)
	if err != nil {
		return err
	}
	defer closeSource()

	prim, err := geometry()
	if err != nil {
		return err
	}

	ctx, err := core.New(instance, core.Options{
		Config:   cfg.Renderer,
		Surface:  surface,
		Shaders:  src,
		Geometry: prim,
	})
	if err != nil {
		return err
	}
	defer ctx.Release()

	log.WithFields(log.Fields{
		"accelerator": ctx.Accelerator().Properties().Name,
		"images":      len(ctx.Swapchain().Images),
		"indices":     ctx.Indices().Count,
	}).Info("rendering context ready")

	if err := ctx.Draw(); err != nil {
		return err
	}
	if err := ctx.WaitFrame(); err != nil {
		return errors.Wrap(err, "wait frame")
	}

	time := core.NewTime(cfg.Time)
	defer time.Stop()

	for range time.EventTicker().C {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch et := event.(type) {
			case *sdl.KeyboardEvent:
				if et.Keysym.Sym == sdl.K_ESCAPE {
					log.Info("escape pressed, exiting")
					return nil
				}
			case *sdl.QuitEvent:
				log.Info("window closed, exiting")
				return nil
			}
		}
	}
	return nil
}
