package core

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/cootrans/internal/config"
	"github.com/signalsfoundry/cootrans/internal/logging"
	"github.com/signalsfoundry/cootrans/internal/observability"
	"github.com/signalsfoundry/cootrans/internal/watch"
	"github.com/signalsfoundry/cootrans/model"
	"github.com/signalsfoundry/cootrans/registry"
)

// EngineVersion is the version reported by Engine.Version.
var EngineVersion = model.VersionTag{Major: 1, Minor: 2, Patch: 0}

const (
	opInitialize          = "Initialize"
	opTeardown            = "Teardown"
	opReload              = "Reload"
	opInertialToBodyFixed = "InertialToBodyFixed"
	opBodyFixedToInertial = "BodyFixedToInertial"

	tracerName = "github.com/signalsfoundry/cootrans/core"
)

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger that receives lifecycle records in addition to
// the file sink opened by Initialize.
func WithLogger(log logging.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithRegisterer sets where the engine's Prometheus collectors are
// registered. By default each engine uses a private registry.
func WithRegisterer(reg prometheus.Registerer) EngineOption {
	return func(e *Engine) {
		if reg != nil {
			e.registerer = reg
		}
	}
}

// Engine owns the datum registry and the resources tied to one
// Initialize/Teardown session. Conversions read an immutable snapshot and
// never block; lifecycle calls are serialized.
type Engine struct {
	mu    sync.Mutex
	state atomic.Pointer[snapshot]

	log        logging.Logger
	registerer prometheus.Registerer
}

// snapshot is replaced, never mutated, once published.
type snapshot struct {
	configDir string
	logDir    string
	session   string

	settings config.Settings
	datums   *DatumSet
	solver   Solver
	sphere   model.Datum

	log     logging.Logger
	sink    *logging.Sink
	tracing *observability.Tracing
	tracer  trace.Tracer
	metrics *observability.EngineCollector
	watcher *watch.Watcher
}

// NewEngine constructs an uninitialized engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		log:        logging.Noop(),
		registerer: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Version returns the engine version. It does not require Initialize.
func (e *Engine) Version() model.VersionTag {
	return EngineVersion
}

// Initialized reports whether a session is active.
func (e *Engine) Initialized() bool {
	return e.state.Load() != nil
}

// Initialize loads settings and datum files from configDir, opens the
// diagnostic sink in logDir (skipped when empty) and publishes the registry.
// On failure nothing stays open and the engine remains uninitialized.
func (e *Engine) Initialize(ctx context.Context, configDir, logDir string) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Load() != nil {
		e.log.Warn(ctx, "initialize called twice without teardown")
		return &InitError{Op: opInitialize, Path: configDir, Kind: ErrAlreadyInitialized}
	}
	if configDir == "" {
		return &InitError{Op: opInitialize, Kind: ErrConfigNotFound, Err: errors.New("configuration directory is empty")}
	}

	if err := checkConfigDir(opInitialize, configDir); err != nil {
		return err
	}

	s := &snapshot{configDir: configDir, logDir: logDir}

	var cleanup []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	s.settings, err = config.Load(configDir)
	if err != nil {
		return &InitError{Op: opInitialize, Path: filepath.Join(configDir, config.FileName), Kind: ErrMalformedDatum, Err: err}
	}

	metrics, err := observability.NewEngineCollector(e.registerer, s.settings.Metrics.Namespace)
	if err != nil {
		e.log.Warn(ctx, "metrics collector unavailable", logging.Err(err))
		metrics = nil
	}
	s.metrics = metrics

	s.log = e.log
	if logDir != "" {
		sink, serr := logging.OpenSink(logDir, logging.SinkConfig{
			FileName: s.settings.Log.File,
			Level:    s.settings.Log.Level,
			Format:   s.settings.Log.Format,
			Buffer:   s.settings.Log.Buffer,
		})
		if serr != nil {
			// The sink is diagnostic only; carry on without it.
			e.log.Warn(ctx, "log sink unavailable", logging.String("dir", logDir), logging.Err(serr))
		} else {
			s.sink = sink
			s.log = logging.Tee(e.log, sink)
			cleanup = append(cleanup, func() { _ = sink.Close() })
		}
	}
	s.log, s.session = logging.WithSession(s.log)

	tracing, terr := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     s.settings.Tracing.Enabled,
		ServiceName: "cootrans",
		Exporter:    s.settings.Tracing.Exporter,
		File:        s.settings.Tracing.File,
		SampleRatio: s.settings.Tracing.SampleRatio,
	}, logDir, s.log)
	if terr != nil {
		s.log.Warn(ctx, "tracing unavailable", logging.Err(terr))
		tracing = nil
	}
	s.tracing = tracing
	s.tracer = tracing.Tracer(tracerName)
	cleanup = append(cleanup, func() { observability.ShutdownWithTimeout(context.Background(), tracing, nil) })

	ctx, span := s.tracer.Start(ctx, "cootrans.Initialize", trace.WithAttributes(
		attribute.String("config_dir", configDir),
		attribute.String("log_dir", logDir),
		attribute.String("session_id", s.session),
	))
	defer func() {
		endSpan(span, err)
		metrics.ObserveLifecycle("initialize", resultLabel(err))
	}()

	s.log.Info(ctx, "initializing",
		logging.String("version", EngineVersion.String()),
		logging.String("config_dir", configDir),
		logging.String("log_dir", logDir),
	)

	set, err := LoadDatumDirectory(configDir, s.settings.Datums.Pattern, s.log)
	if err != nil {
		s.log.Error(ctx, "datum load failed", logging.Err(err))
		return err
	}
	s.applyDatums(set)

	if s.settings.Watch.Enabled {
		w, werr := watch.Start(watch.Config{Dir: configDir, Debounce: s.settings.Watch.Debounce}, e.reloadOnChange, s.log)
		if werr != nil {
			s.log.Warn(ctx, "config watcher unavailable", logging.Err(werr))
		} else {
			s.watcher = w
		}
	}

	e.state.Store(s)
	s.log.Info(ctx, "initialized",
		logging.Int("datums", set.Registry.Len()),
		logging.String("datum_set_version", set.Version),
	)
	return nil
}

func (s *snapshot) applyDatums(set *DatumSet) {
	s.datums = set
	s.solver = Solver{Tolerance: s.settings.Geodetic.Tolerance, MaxIterations: s.settings.Geodetic.MaxIterations}
	s.sphere = DefaultSphere
	s.sphere.EquatorialRadius = s.settings.Sphere.Radius

	s.metrics.SetDatumsLoaded(set.Registry.Len())
	s.metrics.AddSkippedDatums(set.Skipped)
}

// Teardown releases the registry, stops the watcher and flushes the sinks.
// It is a no-op when the engine is not initialized.
func (e *Engine) Teardown(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state.Load()
	if s == nil {
		return
	}

	ctx, span := s.tracer.Start(ctx, "cootrans.Teardown", trace.WithAttributes(
		attribute.String("session_id", s.session),
	))

	// Closing the watcher waits for an in-flight reload callback; that
	// callback only TryLocks, so holding mu here cannot deadlock.
	if err := s.watcher.Close(); err != nil {
		s.log.Warn(ctx, "config watcher close failed", logging.Err(err))
	}
	e.state.Store(nil)
	s.metrics.SetDatumsLoaded(0)
	s.metrics.ObserveLifecycle("teardown", observability.ResultOK)

	s.log.Info(ctx, "teardown")
	span.End()
	observability.ShutdownWithTimeout(ctx, s.tracing, e.log)

	if s.sink != nil {
		if dropped := s.sink.Dropped(); dropped > 0 {
			e.log.Warn(ctx, "log records dropped under back-pressure", logging.Any("dropped", dropped))
		}
		if err := s.sink.Close(); err != nil {
			e.log.Warn(ctx, "log sink close failed", logging.Err(err))
		}
	}
}

// Reload re-reads settings and datum files from the directory given to
// Initialize and swaps them in atomically. On failure the active registry is
// kept. Log, tracing and watch settings apply from the next Initialize.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reloadLocked(ctx)
}

func (e *Engine) reloadLocked(ctx context.Context) (err error) {
	cur := e.state.Load()
	if cur == nil {
		return &InitError{Op: opReload, Kind: ErrNotInitialized}
	}

	ctx, span := cur.tracer.Start(ctx, "cootrans.Reload", trace.WithAttributes(
		attribute.String("session_id", cur.session),
	))
	defer func() {
		endSpan(span, err)
		cur.metrics.ObserveLifecycle("reload", resultLabel(err))
	}()

	if err := checkConfigDir(opReload, cur.configDir); err != nil {
		cur.log.Error(ctx, "reload rejected; keeping active datums", logging.Err(err))
		return err
	}
	settings, err := config.Load(cur.configDir)
	if err != nil {
		cur.log.Error(ctx, "reload rejected; keeping active datums", logging.Err(err))
		return &InitError{Op: opReload, Path: filepath.Join(cur.configDir, config.FileName), Kind: ErrMalformedDatum, Err: err}
	}
	set, err := LoadDatumDirectory(cur.configDir, settings.Datums.Pattern, cur.log)
	if err != nil {
		cur.log.Error(ctx, "reload rejected; keeping active datums", logging.Err(err))
		return err
	}

	next := *cur
	next.settings = settings
	next.applyDatums(set)
	e.state.Store(&next)

	cur.log.Info(ctx, "datums reloaded",
		logging.Int("datums", set.Registry.Len()),
		logging.String("datum_set_version", set.Version),
	)
	return nil
}

// reloadOnChange is the watcher callback. It skips the reload when another
// lifecycle call holds the lock.
func (e *Engine) reloadOnChange(ctx context.Context) {
	if !e.mu.TryLock() {
		return
	}
	defer e.mu.Unlock()
	_ = e.reloadLocked(ctx)
}

// DatumSetVersion returns the version declared by the loaded datum files,
// empty when not initialized.
func (e *Engine) DatumSetVersion() string {
	s := e.state.Load()
	if s == nil {
		return ""
	}
	return s.datums.Version
}

// Datums lists the registered datums sorted by key.
func (e *Engine) Datums() []model.Datum {
	s := e.state.Load()
	if s == nil {
		return nil
	}
	return s.datums.Registry.List()
}

// Collector exposes the engine's metrics, nil when not initialized.
func (e *Engine) Collector() *observability.EngineCollector {
	s := e.state.Load()
	if s == nil {
		return nil
	}
	return s.metrics
}

// XyzToLatLonRadius converts to spherical coordinates. It works without
// Initialize.
func (e *Engine) XyzToLatLonRadius(p model.CartesianPoint) (model.GeodeticPoint, error) {
	start := time.Now()
	g, err := XyzToLatLonRadius(p)
	e.state.Load().observe(opXyzToLatLonRadius, err, start)
	return g, err
}

// XyzToLatLonAltitude converts a body-fixed Cartesian point to geodetic
// coordinates on the named planet's datum.
func (e *Engine) XyzToLatLonAltitude(planet string, p model.CartesianPoint) (model.GeodeticPoint, error) {
	start := time.Now()
	s := e.state.Load()

	d, err := s.lookup(opXyzToLatLonAltitude, planet)
	if err != nil {
		s.observe(opXyzToLatLonAltitude, err, start)
		return model.GeodeticPoint{}, err
	}
	g, iterations, err := s.solver.ToGeodetic(d, p)
	if iterations > 0 {
		s.metrics.ObserveIterations(iterations)
	}
	s.observe(opXyzToLatLonAltitude, err, start)
	if err != nil {
		return model.GeodeticPoint{}, err
	}
	return g, nil
}

// LatLonAltitudeToXyz converts geodetic coordinates on the named planet's
// datum to a body-fixed Cartesian point.
func (e *Engine) LatLonAltitudeToXyz(planet string, g model.GeodeticPoint) (model.CartesianPoint, error) {
	start := time.Now()
	s := e.state.Load()

	d, err := s.lookup(opLatLonAltitudeToXyz, planet)
	if err != nil {
		s.observe(opLatLonAltitudeToXyz, err, start)
		return model.CartesianPoint{}, err
	}
	p, err := ToCartesian(d, g)
	s.observe(opLatLonAltitudeToXyz, err, start)
	if err != nil {
		return model.CartesianPoint{}, err
	}
	return p, nil
}

// InertialToBodyFixed rotates an inertial position into the planet's
// body-fixed frame at t.
func (e *Engine) InertialToBodyFixed(planet string, p model.CartesianPoint, t time.Time) (model.CartesianPoint, error) {
	return e.rotate(opInertialToBodyFixed, planet, p, t, InertialToBodyFixed)
}

// BodyFixedToInertial rotates a body-fixed position into the inertial frame
// at t.
func (e *Engine) BodyFixedToInertial(planet string, p model.CartesianPoint, t time.Time) (model.CartesianPoint, error) {
	return e.rotate(opBodyFixedToInertial, planet, p, t, BodyFixedToInertial)
}

func (e *Engine) rotate(op, planet string, p model.CartesianPoint, t time.Time,
	fn func(model.Datum, model.CartesianPoint, time.Time) model.CartesianPoint,
) (model.CartesianPoint, error) {
	start := time.Now()
	s := e.state.Load()

	d, err := s.lookup(op, planet)
	if err == nil && !p.IsFinite() {
		err = degenerate(op, d.Key, "non-finite coordinate")
	}
	s.observe(op, err, start)
	if err != nil {
		return model.CartesianPoint{}, err
	}
	return fn(d, p, t), nil
}

// lookup resolves planet against the registry, falling back to the
// configured default sphere for the key "sphere".
func (s *snapshot) lookup(op, planet string) (model.Datum, error) {
	if s == nil {
		return model.Datum{}, &ConversionError{Op: op, Planet: planet, Kind: ErrUnknownPlanet, Detail: "engine not initialized"}
	}
	if d, ok := s.datums.Registry.Lookup(planet); ok {
		return d, nil
	}
	if registry.NormalizeKey(planet) == s.sphere.Key {
		return s.sphere, nil
	}
	return model.Datum{}, unknownPlanet(op, planet)
}

func (s *snapshot) observe(op string, err error, start time.Time) {
	if s == nil {
		return
	}
	s.metrics.ObserveConversion(op, resultLabel(err), time.Since(start))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return observability.ResultOK
	case errors.Is(err, ErrUnknownPlanet):
		return "unknown_planet"
	case errors.Is(err, ErrDegenerateInput):
		return "degenerate_input"
	case errors.Is(err, ErrNonConvergent):
		return "non_convergent"
	case errors.Is(err, ErrConfigNotFound):
		return "config_not_found"
	case errors.Is(err, ErrMalformedDatum):
		return "malformed_datum"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	default:
		return "error"
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
