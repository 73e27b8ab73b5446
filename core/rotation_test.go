package core

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/cootrans/model"
)

func TestRotationAngle_NilIsIdentity(t *testing.T) {
	p := model.CartesianPoint{X: 1, Y: 2, Z: 3}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if got := RotationAngle(testMoon, now); got != 0 {
		t.Fatalf("angle = %v, want 0", got)
	}
	if got := InertialToBodyFixed(testMoon, p, now); got != p {
		t.Fatalf("non-rotating body changed point: %+v", got)
	}
}

func TestRotationAngle_Uniform(t *testing.T) {
	rate := 2 * math.Pi / (24.6229 * 3600)
	mars := testMars
	mars.Rotation = &model.RotationModel{
		Kind:                 model.RotationUniform,
		Rate:                 rate,
		PrimeMeridianAtEpoch: 176.63 * math.Pi / 180,
		Epoch:                J2000,
	}

	at := J2000.Add(90 * time.Minute)
	want := math.Mod(176.63*math.Pi/180+rate*5400, 2*math.Pi)
	if got := RotationAngle(mars, at); math.Abs(got-want) > 1e-12 {
		t.Fatalf("angle = %v, want %v", got, want)
	}

	// Before the epoch the angle still lands in [0, 2pi).
	before := RotationAngle(mars, J2000.Add(-1000*time.Hour))
	if before < 0 || before >= 2*math.Pi {
		t.Fatalf("angle %v outside [0, 2pi)", before)
	}
}

func TestRotateQuarterTurn(t *testing.T) {
	body := model.Datum{Key: "spinner", EquatorialRadius: 1, Rotation: &model.RotationModel{
		Kind:                 model.RotationUniform,
		PrimeMeridianAtEpoch: math.Pi / 2,
		Epoch:                J2000,
	}}

	fixed := InertialToBodyFixed(body, model.CartesianPoint{X: 1, Z: 5}, J2000)
	if math.Abs(fixed.X) > 1e-15 || math.Abs(fixed.Y+1) > 1e-15 || fixed.Z != 5 {
		t.Fatalf("quarter turn gave %+v, want (0,-1,5)", fixed)
	}
}

func TestRotationInverse(t *testing.T) {
	earth := testEarth
	earth.Rotation = &model.RotationModel{Kind: model.RotationGMST}
	p := model.CartesianPoint{X: 7000e3, Y: -1200e3, Z: 300e3}

	for _, at := range []time.Time{
		time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC),
		time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
	} {
		back := BodyFixedToInertial(earth, InertialToBodyFixed(earth, p, at), at)
		if dist(back, p) > 1e-6 {
			t.Fatalf("inverse rotation drifted %g m at %v", dist(back, p), at)
		}
		if math.Abs(InertialToBodyFixed(earth, p, at).Norm()-p.Norm()) > 1e-6 {
			t.Fatalf("rotation changed the norm at %v", at)
		}
	}
}

func TestRotationAngle_GMSTMatchesSatelliteLibrary(t *testing.T) {
	earth := testEarth
	earth.Rotation = &model.RotationModel{Kind: model.RotationGMST}

	at := time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC)
	want := satellite.GSTimeFromDate(at.Year(), int(at.Month()), at.Day(), at.Hour(), at.Minute(), at.Second())
	got := RotationAngle(earth, at)
	if angleDiff(got, want) > 1e-6 {
		t.Fatalf("gmst angle = %v, go-satellite gstime = %v", got, want)
	}
}

func TestRotationAngle_GMSTKeepsSubSecondPrecision(t *testing.T) {
	earth := testEarth
	earth.Rotation = &model.RotationModel{Kind: model.RotationGMST}

	at := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	got := angleDiff(RotationAngle(earth, at.Add(500*time.Millisecond)), RotationAngle(earth, at))

	// Earth turns about 7.292e-5 rad/s.
	want := 0.5 * 7.2921159e-5
	if math.Abs(got-want) > 1e-7 {
		t.Fatalf("angle advanced %v rad over 500ms, want about %v", got, want)
	}

	p := model.CartesianPoint{X: testEarth.EquatorialRadius}
	a := InertialToBodyFixed(earth, p, at)
	b := InertialToBodyFixed(earth, p, at.Add(900*time.Millisecond))
	if d := math.Hypot(a.X-b.X, a.Y-b.Y); d < 400 || d > 440 {
		t.Fatalf("surface displacement over 900ms = %.1f m, want about 418.6 m", d)
	}
}
