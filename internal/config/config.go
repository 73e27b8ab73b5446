// Package config loads engine settings. Settings are layered:
// defaults -> {configDir}/cootrans.yaml -> COOTRANS_ environment variables.
package config

import "time"

// FileName is the settings file looked up inside the configuration directory.
// It is never treated as a datum file.
const FileName = "cootrans.yaml"

// Settings holds all tunables of the engine.
type Settings struct {
	Log      LogSettings      `koanf:"log"`
	Geodetic GeodeticSettings `koanf:"geodetic"`
	Sphere   SphereSettings   `koanf:"sphere"`
	Datums   DatumSettings    `koanf:"datums"`
	Tracing  TracingSettings  `koanf:"tracing"`
	Watch    WatchSettings    `koanf:"watch"`
	Metrics  MetricsSettings  `koanf:"metrics"`
}

// LogSettings configures the diagnostic log sink.
type LogSettings struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
	Buffer int    `koanf:"buffer"`
}

// GeodeticSettings bounds the ellipsoidal inversion.
type GeodeticSettings struct {
	Tolerance     float64 `koanf:"tolerance"`
	MaxIterations int     `koanf:"max_iterations"`
}

// SphereSettings describes the default sphere of the radius conversion.
type SphereSettings struct {
	Radius float64 `koanf:"radius"`
}

// DatumSettings controls datum file discovery.
type DatumSettings struct {
	Pattern string `koanf:"pattern"`
}

// TracingSettings configures lifecycle spans.
type TracingSettings struct {
	Enabled     bool    `koanf:"enabled"`
	Exporter    string  `koanf:"exporter"` // file | stdout | none
	File        string  `koanf:"file"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

// WatchSettings configures automatic reload on configuration changes.
type WatchSettings struct {
	Enabled  bool          `koanf:"enabled"`
	Debounce time.Duration `koanf:"debounce"`
}

// MetricsSettings configures Prometheus collector naming.
type MetricsSettings struct {
	Namespace string `koanf:"namespace"`
}
