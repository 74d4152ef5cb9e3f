package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
//
// KnownFields(true) rejects unrecognised keys so a typo in a config file
// fails loudly at load time rather than silently falling back to a
// zero-valued field.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing every hard failure found; soft problems are logged
// via slog.Warn rather than failing the load.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxConcurrentSyntheses < 0 {
		errs = append(errs, fmt.Errorf("server.max_concurrent_syntheses must be >= 0, got %d", cfg.Server.MaxConcurrentSyntheses))
	}

	if len(cfg.Voices) == 0 {
		slog.Warn("no voices configured — the server will start but every synth request will fail")
	}

	voiceNamesSeen := make(map[string]int, len(cfg.Voices))
	needsEngine := false

	for i, v := range cfg.Voices {
		prefix := fmt.Sprintf("voices[%d]", i)
		if v.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else if prev, ok := voiceNamesSeen[v.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of voices[%d]", prefix, v.Name, prev))
		} else {
			voiceNamesSeen[v.Name] = i
		}

		if v.PhonesetKind != "" && v.PhonesetKind != "english" && v.PhonesetKind != "zulu" {
			slog.Warn("unrecognised phoneset_kind — may be a typo or a per-language table not compiled in",
				"voice", v.Name, "phoneset_kind", v.PhonesetKind)
		}
		if !v.Backend.IsValid() {
			errs = append(errs, fmt.Errorf("%s.backend %q is invalid; valid values: unitselect, parametric", prefix, v.Backend))
		}
		for _, fb := range v.FallbackBackends {
			if !fb.IsValid() {
				errs = append(errs, fmt.Errorf("%s.fallback_backends contains invalid backend %q", prefix, fb))
			}
			if fb == BackendParametric {
				needsEngine = true
			}
		}
		if v.Backend == BackendParametric {
			needsEngine = true
		}
	}

	if needsEngine && cfg.Engine.Binary == "" {
		errs = append(errs, errors.New("engine.binary is required when any voice uses (or falls back to) the parametric backend"))
	}
	if len(cfg.Voices) > 0 && cfg.Server.PostgresDSN == "" {
		slog.Warn("server.postgres_dsn is empty; voice bundles must be loaded some other way")
	}

	return errors.Join(errs...)
}
