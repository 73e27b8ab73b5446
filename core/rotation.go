package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/cootrans/model"
)

const secondsPerDay = 86400.0

// RotationAngle returns the angle of the body's prime meridian from the
// inertial X axis at time t, in radians within [0, 2pi). A datum without a
// rotation model has angle 0.
func RotationAngle(d model.Datum, t time.Time) float64 {
	rot := d.Rotation
	if rot == nil {
		return 0
	}

	var theta float64
	switch rot.Kind {
	case model.RotationGMST:
		t = t.UTC()
		year, month, day := t.Date()
		hour, min, sec := t.Clock()
		jd := satellite.JDay(year, int(month), day, hour, min, sec)
		jd += float64(t.Nanosecond()) / 1e9 / secondsPerDay
		theta = satellite.ThetaG_JD(jd) + rot.PrimeMeridianAtEpoch
	default:
		elapsed := t.Sub(rot.Epoch).Seconds()
		theta = rot.PrimeMeridianAtEpoch + rot.Rate*elapsed
	}

	theta = math.Mod(theta, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta
}

// InertialToBodyFixed rotates an inertial position into the body-fixed frame
// of d at time t.
func InertialToBodyFixed(d model.Datum, p model.CartesianPoint, t time.Time) model.CartesianPoint {
	return rotateZ(p, RotationAngle(d, t))
}

// BodyFixedToInertial is the inverse of InertialToBodyFixed.
func BodyFixedToInertial(d model.Datum, p model.CartesianPoint, t time.Time) model.CartesianPoint {
	return rotateZ(p, -RotationAngle(d, t))
}

// rotateZ applies R3(theta), the same frame rotation go-satellite uses for
// ECI to ECEF.
func rotateZ(p model.CartesianPoint, theta float64) model.CartesianPoint {
	v := satellite.ECIToECEF(satellite.Vector3{X: p.X, Y: p.Y, Z: p.Z}, theta)
	return model.CartesianPoint{X: v.X, Y: v.Y, Z: v.Z}
}
