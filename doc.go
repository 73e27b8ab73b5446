// Package cootrans converts coordinates between body-fixed Cartesian and
// geodetic frames for the planets described in a configuration directory.
//
// The package holds one process-wide engine. Call Initialize once with the
// directory of datum files (and optionally a log directory), convert as
// often as needed from any goroutine, then call Teardown:
//
//	if err := cootrans.Initialize("configs/datums", "/var/log/cootrans"); err != nil {
//		os.Exit(cootrans.Code(err))
//	}
//	defer cootrans.Teardown()
//
//	lat, lon, alt, err := cootrans.XyzToLatLonAltitude("earth", 6378137, 0, 0)
//
// Angles are radians and distances metres throughout.
package cootrans
