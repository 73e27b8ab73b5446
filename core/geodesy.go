package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/cootrans/model"
)

// DefaultSphereRadius is the mean Earth radius used by the radius form of
// the conversion (metres).
const DefaultSphereRadius = 6371000.0

// Default convergence settings for the ellipsoidal inversion.
const (
	DefaultTolerance     = 1e-12 // radians
	DefaultMaxIterations = 10
)

const (
	opXyzToLatLonRadius   = "XyzToLatLonRadius"
	opXyzToLatLonAltitude = "XyzToLatLonAltitude"
	opLatLonAltitudeToXyz = "LatLonAltitudeToXyz"
)

// DefaultSphere is the fixed spherical datum behind XyzToLatLonRadius.
var DefaultSphere = model.Datum{
	Key:              "sphere",
	Name:             "Sphere",
	EquatorialRadius: DefaultSphereRadius,
}

// Solver carries the convergence settings of the ellipsoidal inversion.
// The zero value is not usable; start from DefaultSolver.
type Solver struct {
	Tolerance     float64
	MaxIterations int
}

// DefaultSolver returns the solver with the default tolerance and cap.
func DefaultSolver() Solver {
	return Solver{Tolerance: DefaultTolerance, MaxIterations: DefaultMaxIterations}
}

// XyzToLatLonRadius converts a Cartesian point to spherical latitude,
// longitude and radius. The radius is returned in GeodeticPoint.Altitude.
func XyzToLatLonRadius(p model.CartesianPoint) (model.GeodeticPoint, error) {
	if !p.IsFinite() {
		return model.GeodeticPoint{}, degenerate(opXyzToLatLonRadius, "", "non-finite coordinate")
	}
	r := p.Norm()
	if r == 0 {
		return model.GeodeticPoint{}, degenerate(opXyzToLatLonRadius, "", "zero radius")
	}
	lat, lon := sphericalLatLon(p, r)
	return model.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: r}, nil
}

// ToGeodetic converts a Cartesian point to geodetic coordinates on d. It also
// returns the number of iterations the ellipsoidal solver used (0 for the
// closed-form cases). Points deep inside the body near the evolute of the
// meridian ellipse (within about e²·a of the polar axis) may exhaust
// MaxIterations and return ErrNonConvergent.
func (s Solver) ToGeodetic(d model.Datum, p model.CartesianPoint) (model.GeodeticPoint, int, error) {
	if !p.IsFinite() {
		return model.GeodeticPoint{}, 0, degenerate(opXyzToLatLonAltitude, d.Key, "non-finite coordinate")
	}
	r := p.Norm()
	if r == 0 {
		return model.GeodeticPoint{}, 0, degenerate(opXyzToLatLonAltitude, d.Key, "point at body centre")
	}

	a := d.EquatorialRadius
	if d.IsSpherical() {
		lat, lon := sphericalLatLon(p, r)
		return model.GeodeticPoint{Latitude: lat, Longitude: lon, Altitude: r - a}, 0, nil
	}

	rho := math.Hypot(p.X, p.Y)
	if rho == 0 {
		// On the polar axis: latitude is exact, longitude is pinned to 0.
		lat := math.Copysign(math.Pi/2, p.Z)
		return model.GeodeticPoint{Latitude: lat, Longitude: 0, Altitude: math.Abs(p.Z) - d.PolarRadius()}, 0, nil
	}

	f := d.Flattening
	b := d.PolarRadius()
	e2 := d.EccentricitySquared()
	ep2 := d.SecondEccentricitySquared()

	// Bowring's iteration on the parametric (reduced) latitude beta.
	lat := math.Atan2(p.Z, rho*(1-e2))
	iterations := 0
	converged := false
	for iterations < s.MaxIterations {
		iterations++
		sinLat, cosLat := math.Sincos(lat)
		beta := math.Atan2((1-f)*sinLat, cosLat)
		sinB, cosB := math.Sincos(beta)

		next := math.Atan2(p.Z+ep2*b*sinB*sinB*sinB, rho-e2*a*cosB*cosB*cosB)
		delta := math.Abs(next - lat)
		lat = next
		if delta < s.Tolerance {
			converged = true
			break
		}
	}
	if !converged {
		return model.GeodeticPoint{}, iterations, &ConversionError{
			Op:     opXyzToLatLonAltitude,
			Planet: d.Key,
			Kind:   ErrNonConvergent,
			Detail: fmt.Sprintf("no convergence to %g rad after %d iterations", s.Tolerance, s.MaxIterations),
		}
	}

	sinLat, cosLat := math.Sincos(lat)
	alt := rho*cosLat + p.Z*sinLat - a*math.Sqrt(1-e2*sinLat*sinLat)

	return model.GeodeticPoint{
		Latitude:  lat,
		Longitude: normalizeLongitude(math.Atan2(p.Y, p.X)),
		Altitude:  alt,
	}, iterations, nil
}

// ToCartesian converts geodetic coordinates on d to a Cartesian point.
func ToCartesian(d model.Datum, g model.GeodeticPoint) (model.CartesianPoint, error) {
	if !g.IsFinite() {
		return model.CartesianPoint{}, degenerate(opLatLonAltitudeToXyz, d.Key, "non-finite coordinate")
	}
	if math.Abs(g.Latitude) > math.Pi/2 {
		return model.CartesianPoint{}, degenerate(opLatLonAltitudeToXyz, d.Key,
			fmt.Sprintf("latitude %g outside [-pi/2, pi/2]", g.Latitude))
	}

	e2 := d.EccentricitySquared()
	sinLat, cosLat := math.Sincos(g.Latitude)
	sinLon, cosLon := math.Sincos(g.Longitude)

	// Radius of curvature in the prime vertical.
	n := d.EquatorialRadius / math.Sqrt(1-e2*sinLat*sinLat)

	return model.CartesianPoint{
		X: (n + g.Altitude) * cosLat * cosLon,
		Y: (n + g.Altitude) * cosLat * sinLon,
		Z: ((1-e2)*n + g.Altitude) * sinLat,
	}, nil
}

func sphericalLatLon(p model.CartesianPoint, r float64) (lat, lon float64) {
	s := p.Z / r
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return math.Asin(s), normalizeLongitude(math.Atan2(p.Y, p.X))
}

// normalizeLongitude maps an atan2 result into (-pi, pi].
func normalizeLongitude(lon float64) float64 {
	if lon <= -math.Pi {
		return lon + 2*math.Pi
	}
	return lon
}
