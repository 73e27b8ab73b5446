// Command cootrans converts planetary coordinates from the shell.
//
// The exit status is the engine's error code: 0 on success, 1-4 for
// initialization failures, 10-12 for conversion failures, 99 otherwise.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/cootrans"
)

const appName = "cootrans"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return cootrans.Code(err)
	}
	return 0
}

type globalFlags struct {
	configDir string
	logDir    string
	degrees   bool
	precision int
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Planetary coordinate transformations",
		Long: `cootrans converts between body-fixed Cartesian coordinates and geodetic
latitude, longitude and altitude on the reference ellipsoids described in a
configuration directory of datum files.

Distances are metres. Angles are radians unless --degrees is given.
Put -- before the positional arguments when any of them is negative.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configDir, "config-dir", "c", envOr("COOTRANS_CONFIG_DIR", "configs/datums"), "Directory holding datum files and cootrans.yaml")
	pf.StringVar(&g.logDir, "log-dir", os.Getenv("COOTRANS_LOG_DIR"), "Directory for the diagnostic log (disabled when empty)")
	pf.BoolVarP(&g.degrees, "degrees", "d", false, "Read and print angles in degrees")
	pf.IntVarP(&g.precision, "precision", "p", 9, "Decimal places in printed values")

	cmd.AddCommand(
		versionCmd(),
		datumsCmd(g),
		xyzToLLRCmd(g),
		xyzToLLACmd(g),
		llaToXyzCmd(g),
		rotateCmd(g),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
