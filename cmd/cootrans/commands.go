package main

import (
	"fmt"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/cootrans"
	"github.com/signalsfoundry/cootrans/timectrl"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the engine version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v := cootrans.Version()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (0x%06x)\n", appName, v, v.Packed())
		},
	}
}

func datumsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "datums",
		Short: "List the datums found in the configuration directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withEngine(func() error {
				out := cmd.OutOrStdout()
				if v := cootrans.DatumSetVersion(); v != "" {
					fmt.Fprintf(out, "datum set %s\n", v)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tNAME\tEQUATORIAL (m)\tPOLAR (m)\t1/F\tROTATION\tSOURCE")
				for _, d := range cootrans.Datums() {
					inv := "-"
					if !d.IsSpherical() {
						inv = g.format(1 / d.Flattening)
					}
					rot := "-"
					if d.Rotation != nil {
						rot = string(d.Rotation.Kind)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						d.Key, d.Name,
						decimal.NewFromFloat(d.EquatorialRadius).StringFixed(3),
						decimal.NewFromFloat(d.PolarRadius()).StringFixed(3),
						inv, rot, d.Source)
				}
				return tw.Flush()
			})
		},
	}
}

func xyzToLLRCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "xyz2llr X Y Z",
		Short: "Cartesian to spherical latitude, longitude and radius",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseNumbers(args)
			if err != nil {
				return err
			}
			lat, lon, r, err := cootrans.XyzToLatLonRadius(v[0], v[1], v[2])
			if err != nil {
				return err
			}
			g.printTriple(cmd, g.angleOut(lat), g.angleOut(lon), r)
			return nil
		},
	}
}

func xyzToLLACmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "xyz2lla PLANET X Y Z",
		Short: "Cartesian to geodetic latitude, longitude and altitude",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseNumbers(args[1:])
			if err != nil {
				return err
			}
			return g.withEngine(func() error {
				lat, lon, alt, err := cootrans.XyzToLatLonAltitude(args[0], v[0], v[1], v[2])
				if err != nil {
					return err
				}
				g.printTriple(cmd, g.angleOut(lat), g.angleOut(lon), alt)
				return nil
			})
		},
	}
}

func llaToXyzCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lla2xyz PLANET LAT LON ALT",
		Short: "Geodetic latitude, longitude and altitude to Cartesian",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseNumbers(args[1:])
			if err != nil {
				return err
			}
			return g.withEngine(func() error {
				x, y, z, err := cootrans.LatLonAltitudeToXyz(args[0], g.angleIn(v[0]), g.angleIn(v[1]), v[2])
				if err != nil {
					return err
				}
				g.printTriple(cmd, x, y, z)
				return nil
			})
		},
	}
}

func rotateCmd(g *globalFlags) *cobra.Command {
	var (
		at      string
		until   string
		step    time.Duration
		inverse bool
	)
	cmd := &cobra.Command{
		Use:   "rotate PLANET X Y Z",
		Short: "Rotate an inertial point into the body-fixed frame",
		Long: `Rotate an inertial point into the planet's body-fixed frame at the given
time. With --inverse the point is taken as body-fixed and rotated back into
the inertial frame. With --until the rotation is repeated every --step up to
and including that instant, one line per instant.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseNumbers(args[1:])
			if err != nil {
				return err
			}
			start := timectrl.SystemClock{}.Now()
			if at != "" {
				if start, err = time.Parse(time.RFC3339Nano, at); err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}
			end := start
			if until != "" {
				if end, err = time.Parse(time.RFC3339Nano, until); err != nil {
					return fmt.Errorf("invalid --until: %w", err)
				}
			}
			sweep, err := timectrl.NewSweep(start, end, step)
			if err != nil {
				return err
			}

			rotate := cootrans.InertialToBodyFixed
			if inverse {
				rotate = cootrans.BodyFixedToInertial
			}
			sweep.AddListener(func(t time.Time) error {
				x, y, z, err := rotate(args[0], v[0], v[1], v[2], t)
				if err != nil {
					return err
				}
				if until != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s ", t.UTC().Format(time.RFC3339))
				}
				g.printTriple(cmd, x, y, z)
				return nil
			})

			return g.withEngine(func() error {
				_, err := sweep.Run()
				return err
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "RFC 3339 instant of the rotation (default now)")
	cmd.Flags().StringVar(&until, "until", "", "RFC 3339 end of a rotation sweep starting at --at")
	cmd.Flags().DurationVar(&step, "step", time.Hour, "Interval between instants of a sweep")
	cmd.Flags().BoolVar(&inverse, "inverse", false, "Rotate from body-fixed to inertial")
	return cmd
}

// withEngine brackets fn with Initialize and Teardown.
func (g *globalFlags) withEngine(fn func() error) error {
	if err := cootrans.Initialize(g.configDir, g.logDir); err != nil {
		return err
	}
	defer cootrans.Teardown()
	return fn()
}

func (g *globalFlags) angleIn(v float64) float64 {
	if g.degrees {
		return v * math.Pi / 180
	}
	return v
}

func (g *globalFlags) angleOut(v float64) float64 {
	if g.degrees {
		return v * 180 / math.Pi
	}
	return v
}

func (g *globalFlags) format(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(int32(g.precision))
}

func (g *globalFlags) printTriple(cmd *cobra.Command, a, b, c float64) {
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join([]string{g.format(a), g.format(b), g.format(c)}, " "))
}

func parseNumbers(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		d, err := decimal.NewFromString(strings.TrimSpace(a))
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", a, err)
		}
		out[i], _ = d.Float64()
	}
	return out, nil
}
