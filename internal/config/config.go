package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int           `envconfig:"PORT" default:"8080"`
	JWTSecret      string        `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AssetDir       string        `envconfig:"ASSET_DIR" default:"./data/assets"`
	FfmpegPath     string        `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	FrameRate      int           `envconfig:"FRAME_RATE" default:"30"`
	CanvasWidth    int           `envconfig:"CANVAS_WIDTH" default:"800"`
	CanvasHeight   int           `envconfig:"CANVAS_HEIGHT" default:"600"`
	SampleDelta    float64       `envconfig:"SAMPLE_DELTA" default:"0.02"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	// Sample is the scene the desktop viewer opens with.
	Sample string `envconfig:"SAMPLE" default:"function"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.FrameRate <= 0 {
		return nil, fmt.Errorf("FRAME_RATE must be positive, got %d", cfg.FrameRate)
	}
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d", cfg.CanvasWidth, cfg.CanvasHeight)
	}
	if cfg.SampleDelta <= 0 {
		return nil, fmt.Errorf("SAMPLE_DELTA must be positive, got %g", cfg.SampleDelta)
	}
	return &cfg, nil
}

// Level maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Origins splits ALLOWED_ORIGINS into a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// OriginHosts returns the host part of each allowed origin, the form websocket
// origin patterns expect.
func (c *Config) OriginHosts() []string {
	var out []string
	for _, o := range c.Origins() {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
