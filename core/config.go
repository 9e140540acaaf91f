package core

import (
	"strconv"
	"strings"

	"github.com/gobuffalo/envy"
	"github.com/pkg/errors"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Renderer RendererConfiguration

	// LogLevel is a logrus level name
	LogLevel string
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between event polls in milliseconds
	EventPollDelay int
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize    uint32
	DeviceExtensions []string

	ScreenWidth  uint32
	ScreenHeight uint32

	// ShaderDirectory is where VertexShader and FragmentShader
	// are looked up when read from disk
	ShaderDirectory string
	VertexShader    string
	FragmentShader  string

	ClearColor [4]float32
}

// SwapchainExtension is the device extension every context needs
const SwapchainExtension = "VK_KHR_swapchain"

// DefaultConfiguration returns the configuration used when
// nothing is set in the environment
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  10,
		},
		Renderer: RendererConfiguration{
			SwapchainSize:    3,
			DeviceExtensions: []string{SwapchainExtension},
			ScreenWidth:      800,
			ScreenHeight:     600,
			ShaderDirectory:  "Resources/Shaders",
			VertexShader:     "vert.spv",
			FragmentShader:   "frag.spv",
			ClearColor:       [4]float32{0.2, 0.2, 0.2, 1},
		},
		LogLevel: "info",
	}
}

// LoadConfiguration reads RAFT_* variables from the environment
// (and a .env file, if present) over the defaults
func LoadConfiguration() (Configuration, error) {
	cfg := DefaultConfiguration()
	var err error

	uints := []struct {
		key string
		dst *uint32
	}{
		{"RAFT_SCREEN_WIDTH", &cfg.Renderer.ScreenWidth},
		{"RAFT_SCREEN_HEIGHT", &cfg.Renderer.ScreenHeight},
		{"RAFT_SWAPCHAIN_SIZE", &cfg.Renderer.SwapchainSize},
	}
	for _, u := range uints {
		if *u.dst, err = envUint32(u.key, *u.dst); err != nil {
			return Configuration{}, err
		}
	}

	if cfg.Time.FramesPerSecond, err = envInt("RAFT_FPS", cfg.Time.FramesPerSecond); err != nil {
		return Configuration{}, err
	}
	if cfg.Time.EventPollDelay, err = envInt("RAFT_EVENT_POLL_DELAY", cfg.Time.EventPollDelay); err != nil {
		return Configuration{}, err
	}

	cfg.Renderer.ShaderDirectory = envString("RAFT_SHADER_DIR", cfg.Renderer.ShaderDirectory)
	cfg.Renderer.VertexShader = envString("RAFT_VERTEX_SHADER", cfg.Renderer.VertexShader)
	cfg.Renderer.FragmentShader = envString("RAFT_FRAGMENT_SHADER", cfg.Renderer.FragmentShader)
	cfg.LogLevel = envString("RAFT_LOG_LEVEL", cfg.LogLevel)

	if ext := envy.Get("RAFT_DEVICE_EXTENSIONS", ""); ext != "" {
		cfg.Renderer.DeviceExtensions = splitList(ext)
	}
	if color := envy.Get("RAFT_CLEAR_COLOR", ""); color != "" {
		if cfg.Renderer.ClearColor, err = ParseColor(color); err != nil {
			return Configuration{}, errors.Wrap(err, "RAFT_CLEAR_COLOR")
		}
	}
	return cfg, nil
}

// ParseColor parses four comma separated components, e.g. "0.2,0.2,0.2,1"
func ParseColor(s string) ([4]float32, error) {
	var color [4]float32
	parts := splitList(s)
	if len(parts) != 4 {
		return color, errors.Errorf("color %q needs 4 components, has %d", s, len(parts))
	}
	for idx, p := range parts {
		v, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return color, errors.Wrapf(err, "color component %d", idx)
		}
		color[idx] = float32(v)
	}
	return color, nil
}

// envString treats an empty variable the same as an unset one
func envString(key, def string) string {
	if s := envy.Get(key, ""); s != "" {
		return s
	}
	return def
}

func envUint32(key string, def uint32) (uint32, error) {
	s := envy.Get(key, "")
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, key)
	}
	return uint32(v), nil
}

func envInt(key string, def int) (int, error) {
	s := envy.Get(key, "")
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, key)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
