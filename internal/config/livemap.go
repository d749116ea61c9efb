package config

import (
	"fmt"
	"io"
	"time"

	"gtfsrt-livemap/internal/animate"
)

// LiveMap configures the animation host.
type LiveMap struct {
	ChannelURL     string        `yaml:"channel_url" toml:"channel_url" validate:"required,url"`
	NATSSubject    string        `yaml:"nats_subject" toml:"nats_subject" validate:"required"`
	HTTPAddr       string        `yaml:"http_addr" toml:"http_addr" validate:"required"`
	MetricsAddr    string        `yaml:"metrics_addr" toml:"metrics_addr"`
	AnimationSteps int           `yaml:"animation_steps" toml:"animation_steps" validate:"gte=1,lte=600"`
	FrameInterval  time.Duration `yaml:"frame_interval" toml:"frame_interval" validate:"gt=0"`
}

func DefaultLiveMap() LiveMap {
	return LiveMap{
		ChannelURL:     "ws://127.0.0.1:8080/data.json",
		NATSSubject:    "vehicles.batch",
		HTTPAddr:       ":8090",
		AnimationSteps: animate.DefaultSteps,
		FrameInterval:  animate.DefaultFrameInterval,
	}
}

// LoadLiveMap builds the live map configuration from the environment, an
// optional -config file and args.
func LoadLiveMap(programName string, args []string, errOut io.Writer) (LiveMap, error) {
	cfg := DefaultLiveMap()

	envString("LIVEMAP_CHANNEL_URL", &cfg.ChannelURL)
	envString("LIVEMAP_HTTP_ADDR", &cfg.HTTPAddr)
	envString("LIVEMAP_METRICS_ADDR", &cfg.MetricsAddr)
	envString("LIVEMAP_NATS_SUBJECT", &cfg.NATSSubject)
	if err := envInt("LIVEMAP_ANIMATION_STEPS", &cfg.AnimationSteps); err != nil {
		return LiveMap{}, err
	}

	if path := configPath(args); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return LiveMap{}, err
		}
	}

	var file string
	fs := newFlagSet(programName, errOut)
	fs.StringVar(&file, "config", "", "YAML or TOML configuration file")
	fs.StringVar(&cfg.ChannelURL, "channel_url", cfg.ChannelURL, "live channel: ws://, wss:// or nats:// URL")
	fs.StringVar(&cfg.NATSSubject, "nats_subject", cfg.NATSSubject, "NATS subject carrying vehicle batches")
	fs.StringVar(&cfg.HTTPAddr, "http_addr", cfg.HTTPAddr, "scene HTTP listen address")
	fs.StringVar(&cfg.MetricsAddr, "metrics_addr", cfg.MetricsAddr, "metrics listen address, empty disables")
	fs.IntVar(&cfg.AnimationSteps, "animation_steps", cfg.AnimationSteps, "frames per animated move")
	fs.DurationVar(&cfg.FrameInterval, "frame_interval", cfg.FrameInterval, "pause between drained frames")
	if err := fs.Parse(args); err != nil {
		return LiveMap{}, err
	}

	if err := cfg.Validate(); err != nil {
		return LiveMap{}, err
	}
	return cfg, nil
}

func (cfg LiveMap) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid live map config: %w", err)
	}
	return nil
}
