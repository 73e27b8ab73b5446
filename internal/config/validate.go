package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate checks all settings and returns aggregated errors.
func (s *Settings) Validate() error {
	return errors.Join(
		s.Log.validate(),
		s.Geodetic.validate(),
		s.Sphere.validate(),
		s.Datums.validate(),
		s.Tracing.validate(),
		s.Watch.validate(),
	)
}

func (l *LogSettings) validate() error {
	var errs []error

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", l.Level))
	}
	switch l.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be one of: json, text; got %q", l.Format))
	}
	if err := validFileName("log.file", l.File); err != nil {
		errs = append(errs, err)
	}
	if l.Buffer < 1 {
		errs = append(errs, fmt.Errorf("log.buffer must be >= 1, got %d", l.Buffer))
	}

	return errors.Join(errs...)
}

func (g *GeodeticSettings) validate() error {
	var errs []error
	if !(g.Tolerance > 0) || g.Tolerance > 1e-3 {
		errs = append(errs, fmt.Errorf("geodetic.tolerance must be in (0, 1e-3], got %g", g.Tolerance))
	}
	if g.MaxIterations < 1 || g.MaxIterations > 1000 {
		errs = append(errs, fmt.Errorf("geodetic.max_iterations must be in [1, 1000], got %d", g.MaxIterations))
	}
	return errors.Join(errs...)
}

func (s *SphereSettings) validate() error {
	if !(s.Radius > 0) {
		return fmt.Errorf("sphere.radius must be positive, got %g", s.Radius)
	}
	return nil
}

func (d *DatumSettings) validate() error {
	if strings.TrimSpace(d.Pattern) == "" {
		return errors.New("datums.pattern must not be empty")
	}
	return nil
}

func (t *TracingSettings) validate() error {
	var errs []error
	switch t.Exporter {
	case "file", "stdout", "none":
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter must be one of: file, stdout, none; got %q", t.Exporter))
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be in [0, 1], got %g", t.SampleRatio))
	}
	if err := validFileName("tracing.file", t.File); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (w *WatchSettings) validate() error {
	if w.Enabled && w.Debounce <= 0 {
		return errors.New("watch.debounce must be positive when watch is enabled")
	}
	return nil
}

// validFileName keeps sink files inside the log directory.
func validFileName(key, name string) error {
	if name == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("%s must be a bare file name, got %q", key, name)
	}
	return nil
}
