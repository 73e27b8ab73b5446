package cootrans

import (
	"context"
	"time"

	"github.com/signalsfoundry/cootrans/core"
	"github.com/signalsfoundry/cootrans/model"
)

// Datum and VersionTag are re-exported so callers need not import model.
type (
	Datum      = model.Datum
	VersionTag = model.VersionTag
)

// Error kinds, matched with errors.Is.
var (
	ErrConfigNotFound     = core.ErrConfigNotFound
	ErrMalformedDatum     = core.ErrMalformedDatum
	ErrAlreadyInitialized = core.ErrAlreadyInitialized
	ErrNotInitialized     = core.ErrNotInitialized
	ErrUnknownPlanet      = core.ErrUnknownPlanet
	ErrDegenerateInput    = core.ErrDegenerateInput
	ErrNonConvergent      = core.ErrNonConvergent
)

var engine = core.NewEngine()

// Engine returns the process-wide engine behind the package functions.
func Engine() *core.Engine { return engine }

// Version reports the engine version. It may be called at any time.
func Version() VersionTag { return engine.Version() }

// Initialize loads the datum files in configDir and opens a diagnostic log
// in logDir (no file sink when logDir is empty). A second call without
// Teardown fails with ErrAlreadyInitialized.
func Initialize(configDir, logDir string) error {
	return engine.Initialize(context.Background(), configDir, logDir)
}

// Teardown releases the registry and closes the log. Calling it when not
// initialized does nothing.
func Teardown() { engine.Teardown(context.Background()) }

// Reload re-reads the configuration directory given to Initialize. The
// previous datums stay active if the new ones fail to load.
func Reload() error { return engine.Reload(context.Background()) }

// DatumSetVersion returns the version string declared by the datum files.
func DatumSetVersion() string { return engine.DatumSetVersion() }

// Datums lists the loaded datums sorted by key.
func Datums() []Datum { return engine.Datums() }

// XyzToLatLonRadius converts to spherical latitude, longitude and radius.
func XyzToLatLonRadius(x, y, z float64) (lat, lon, radius float64, err error) {
	g, err := engine.XyzToLatLonRadius(model.CartesianPoint{X: x, Y: y, Z: z})
	return g.Latitude, g.Longitude, g.Altitude, err
}

// XyzToLatLonAltitude converts a body-fixed point to geodetic coordinates on
// the planet's datum.
func XyzToLatLonAltitude(planet string, x, y, z float64) (lat, lon, alt float64, err error) {
	g, err := engine.XyzToLatLonAltitude(planet, model.CartesianPoint{X: x, Y: y, Z: z})
	return g.Latitude, g.Longitude, g.Altitude, err
}

// LatLonAltitudeToXyz converts geodetic coordinates on the planet's datum to
// a body-fixed point.
func LatLonAltitudeToXyz(planet string, lat, lon, alt float64) (x, y, z float64, err error) {
	p, err := engine.LatLonAltitudeToXyz(planet, model.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: alt})
	return p.X, p.Y, p.Z, err
}

// InertialToBodyFixed rotates an inertial point into the planet's
// body-fixed frame at t.
func InertialToBodyFixed(planet string, x, y, z float64, t time.Time) (float64, float64, float64, error) {
	p, err := engine.InertialToBodyFixed(planet, model.CartesianPoint{X: x, Y: y, Z: z}, t)
	return p.X, p.Y, p.Z, err
}

// BodyFixedToInertial is the inverse of InertialToBodyFixed.
func BodyFixedToInertial(planet string, x, y, z float64, t time.Time) (float64, float64, float64, error) {
	p, err := engine.BodyFixedToInertial(planet, model.CartesianPoint{X: x, Y: y, Z: z}, t)
	return p.X, p.Y, p.Z, err
}

// Code maps an error from this package to its stable integer code; nil is 0.
func Code(err error) int { return core.Code(err) }
