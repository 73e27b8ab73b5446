package config

const (
	defaultTolerance     = 1e-12
	defaultMaxIterations = 10
	defaultSphereRadius  = 6371000.0
	defaultLogBuffer     = 1024
)

// defaults returns the default configuration values.
// These are loaded first and can be overridden by cootrans.yaml and env vars.
func defaults() map[string]any {
	return map[string]any{
		"log.level":  "info",
		"log.format": "json",
		"log.file":   "cootrans.log",
		"log.buffer": defaultLogBuffer,

		"geodetic.tolerance":      defaultTolerance,
		"geodetic.max_iterations": defaultMaxIterations,

		"sphere.radius": defaultSphereRadius,

		"datums.pattern": "**/*.{yaml,yml,json}",

		"tracing.enabled":      false,
		"tracing.exporter":     "file",
		"tracing.file":         "traces.jsonl",
		"tracing.sample_ratio": 1.0,

		"watch.enabled":  false,
		"watch.debounce": "500ms",

		"metrics.namespace": "cootrans",
	}
}

// Default returns the settings used when no file or env override exists.
func Default() Settings {
	s, err := fromMaps(nil)
	if err != nil {
		// The defaults map is static; failing to decode it is a programming error.
		panic(err)
	}
	return s
}
