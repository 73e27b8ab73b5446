package model

import (
	"math"
	"time"
)

// RotationKind selects how a body's rotation angle is computed.
type RotationKind string

const (
	// RotationUniform advances the prime meridian at a constant rate from an epoch.
	RotationUniform RotationKind = "uniform"
	// RotationGMST uses Greenwich Mean Sidereal Time (Earth only).
	RotationGMST RotationKind = "gmst"
)

// RotationModel describes the optional spin of a body about its +Z axis.
type RotationModel struct {
	Kind                 RotationKind
	Rate                 float64 // rad/s
	PrimeMeridianAtEpoch float64 // rad
	Epoch                time.Time
}

// Datum is the reference sphere or ellipsoid of a planet.
// Datums are immutable once loaded into a registry.
type Datum struct {
	Key     string // canonical lookup key, lower case
	Name    string
	Aliases []string

	EquatorialRadius float64 // metres
	Flattening       float64 // (a-b)/a, 0 for a sphere

	Rotation *RotationModel // nil for a non-rotating body

	Source string // file the datum was loaded from
}

// PolarRadius returns b = a(1-f).
func (d Datum) PolarRadius() float64 {
	return d.EquatorialRadius * (1 - d.Flattening)
}

// EccentricitySquared returns e² = f(2-f).
func (d Datum) EccentricitySquared() float64 {
	return d.Flattening * (2 - d.Flattening)
}

// SecondEccentricitySquared returns e'² = e²/(1-e²).
func (d Datum) SecondEccentricitySquared() float64 {
	e2 := d.EccentricitySquared()
	return e2 / (1 - e2)
}

// IsSpherical reports whether the datum has no flattening.
func (d Datum) IsSpherical() bool {
	return d.Flattening == 0
}

// CartesianPoint is a position in a body-fixed rectangular frame, in metres.
type CartesianPoint struct {
	X, Y, Z float64
}

// Norm returns the distance of the point from the body centre.
func (p CartesianPoint) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// IsFinite reports whether every component is a finite number.
func (p CartesianPoint) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

// GeodeticPoint holds latitude and longitude in radians and an altitude in
// metres. For the spherical radius form Altitude carries the radius instead.
type GeodeticPoint struct {
	Latitude  float64 // [-pi/2, pi/2]
	Longitude float64 // (-pi, pi]
	Altitude  float64
}

// IsFinite reports whether every component is a finite number.
func (g GeodeticPoint) IsFinite() bool {
	return isFinite(g.Latitude) && isFinite(g.Longitude) && isFinite(g.Altitude)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
