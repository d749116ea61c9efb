package config

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Visualizer configures the feed server. Exactly one feed URL must be set.
type Visualizer struct {
	Port            int           `yaml:"port" toml:"port" validate:"gt=0,lte=65535"`
	StaticDir       string        `yaml:"static_dir" toml:"static_dir"`
	GTFSRTURL       string        `yaml:"gtfsrt_url" toml:"gtfsrt_url" validate:"omitempty,url"`
	SiriXMLURL      string        `yaml:"siri_xml_url" toml:"siri_xml_url" validate:"omitempty,url"`
	SiriJSONURL     string        `yaml:"siri_json_url" toml:"siri_json_url" validate:"omitempty,url"`
	Agency          string        `yaml:"agency" toml:"agency"`
	Hue             float64       `yaml:"hue" toml:"hue"`
	RefreshInitSecs int           `yaml:"refresh_init_secs" toml:"refresh_init_secs" validate:"gt=0"`
	RefreshMinSecs  int           `yaml:"refresh_min_secs" toml:"refresh_min_secs" validate:"gt=0"`
	LockRefresh     bool          `yaml:"lock_refresh" toml:"lock_refresh"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" toml:"fetch_timeout" validate:"gt=0"`
	NATSURL         string        `yaml:"nats_url" toml:"nats_url" validate:"omitempty,url"`
	NATSSubject     string        `yaml:"nats_subject" toml:"nats_subject" validate:"required"`
	MetricsAddr     string        `yaml:"metrics_addr" toml:"metrics_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" validate:"gt=0"`
}

func DefaultVisualizer() Visualizer {
	return Visualizer{
		Port:            8080,
		StaticDir:       "./static",
		RefreshInitSecs: 20,
		RefreshMinSecs:  10,
		FetchTimeout:    10 * time.Second,
		NATSSubject:     "vehicles.batch",
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadVisualizer builds the feed server configuration from the environment,
// an optional -config file and args.
func LoadVisualizer(programName string, args []string, errOut io.Writer) (Visualizer, error) {
	cfg := DefaultVisualizer()

	if err := envInt("PORT", &cfg.Port); err != nil {
		return Visualizer{}, err
	}
	envString("GTFSRT_URL", &cfg.GTFSRTURL)
	envString("SIRI_XML_URL", &cfg.SiriXMLURL)
	envString("SIRI_JSON_URL", &cfg.SiriJSONURL)
	envString("AGENCY", &cfg.Agency)
	envString("NATS_URL", &cfg.NATSURL)
	envString("METRICS_ADDR", &cfg.MetricsAddr)

	if path := configPath(args); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Visualizer{}, err
		}
	}

	var file string
	fs := newFlagSet(programName, errOut)
	fs.StringVar(&file, "config", "", "YAML or TOML configuration file")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	fs.StringVar(&cfg.StaticDir, "static_dir", cfg.StaticDir, "directory of static map assets")
	fs.StringVar(&cfg.GTFSRTURL, "gtfsrt_url", cfg.GTFSRTURL, "GTFS-RT vehicle positions URL (protobuf)")
	fs.StringVar(&cfg.SiriXMLURL, "siri_xml_url", cfg.SiriXMLURL, "SIRI VehicleMonitoring XML URL")
	fs.StringVar(&cfg.SiriJSONURL, "siri_json_url", cfg.SiriJSONURL, "SIRI VehicleMonitoring JSON URL")
	fs.StringVar(&cfg.Agency, "agency", cfg.Agency, "agency name attached to every vehicle")
	fs.Float64Var(&cfg.Hue, "hue", cfg.Hue, "base hue in (0,1) for the agency; random when unset")
	fs.IntVar(&cfg.RefreshInitSecs, "refresh", cfg.RefreshInitSecs, "initial refresh interval in seconds")
	fs.IntVar(&cfg.RefreshMinSecs, "refresh_min_secs", cfg.RefreshMinSecs, "minimum refresh interval in seconds")
	fs.BoolVar(&cfg.LockRefresh, "lock_refresh", cfg.LockRefresh, "disable dynamic refresh and keep the initial interval")
	fs.DurationVar(&cfg.FetchTimeout, "fetch_timeout", cfg.FetchTimeout, "feed HTTP timeout")
	fs.StringVar(&cfg.NATSURL, "nats_url", cfg.NATSURL, "also publish batches to this NATS server")
	fs.StringVar(&cfg.NATSSubject, "nats_subject", cfg.NATSSubject, "NATS subject for vehicle batches")
	fs.StringVar(&cfg.MetricsAddr, "metrics_addr", cfg.MetricsAddr, "metrics listen address, empty disables")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown_timeout", cfg.ShutdownTimeout, "HTTP server shutdown timeout")
	if err := fs.Parse(args); err != nil {
		return Visualizer{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Visualizer{}, err
	}
	return cfg, nil
}

func (cfg Visualizer) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid visualizer config: %w", err)
	}
	count := 0
	for _, u := range []string{cfg.GTFSRTURL, cfg.SiriXMLURL, cfg.SiriJSONURL} {
		if u != "" {
			count++
		}
	}
	if count != 1 {
		return errors.New("provide exactly one of gtfsrt_url, siri_xml_url, siri_json_url")
	}
	return nil
}
