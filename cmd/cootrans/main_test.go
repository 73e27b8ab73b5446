package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDatums = `version: "3.0.0"
datums:
  - name: Earth
    aliases: [wgs84]
    equatorial_radius: 6378137
    inverse_flattening: 298.257223563
    rotation:
      model: gmst
  - name: Moon
    equatorial_radius: 1737400
`

func configDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "planets.yaml"), []byte(testDatums), 0o644))
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "cootrans v1.2.0 (0x010200)\n", out)
}

func TestXyzToLLR(t *testing.T) {
	code, out, _ := runCLI(t, "--degrees", "--precision", "3", "xyz2llr", "0", "0", "10")
	assert.Equal(t, 0, code)
	assert.Equal(t, "90.000 0.000 10.000\n", out)

	code, _, errOut := runCLI(t, "xyz2llr", "0", "0", "0")
	assert.Equal(t, 11, code)
	assert.Contains(t, errOut, "degenerate input")
}

func TestXyzToLLA(t *testing.T) {
	dir := configDir(t)

	code, out, _ := runCLI(t, "-c", dir, "-p", "4", "xyz2lla", "Earth", "6378137", "0", "0")
	assert.Equal(t, 0, code)
	assert.Equal(t, "0.0000 0.0000 0.0000\n", out)

	code, _, errOut := runCLI(t, "-c", dir, "xyz2lla", "Atlantis", "1", "2", "3")
	assert.Equal(t, 10, code)
	assert.Contains(t, errOut, "unknown planet")
}

func TestLLAToXyzWithNegativeArguments(t *testing.T) {
	dir := configDir(t)

	code, out, _ := runCLI(t, "-c", dir, "-d", "-p", "3", "lla2xyz", "moon", "--", "-90", "0", "-400")
	assert.Equal(t, 0, code)
	fields := strings.Fields(out)
	require.Len(t, fields, 3)
	assert.Equal(t, "0.000", strings.TrimPrefix(fields[0], "-"))
	assert.Equal(t, "0.000", strings.TrimPrefix(fields[1], "-"))
	assert.Equal(t, "-1737000.000", fields[2])
}

func TestDatumsCommand(t *testing.T) {
	logDir := t.TempDir()
	code, out, _ := runCLI(t, "--config-dir", configDir(t), "--log-dir", logDir, "datums")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "datum set 3.0.0")
	assert.Contains(t, out, "earth")
	assert.Contains(t, out, "6356752.314")
	assert.Contains(t, out, "gmst")
	assert.Contains(t, out, "planets.yaml")

	_, err := os.Stat(filepath.Join(logDir, "cootrans.log"))
	assert.NoError(t, err)
}

func TestRotateRoundTrip(t *testing.T) {
	dir := configDir(t)
	at := "2026-10-19T00:00:00Z"

	code, fixed, _ := runCLI(t, "-c", dir, "-p", "6", "rotate", "earth", "7000000", "0", "0", "--at", at)
	require.Equal(t, 0, code)
	xyz := strings.Fields(fixed)
	require.Len(t, xyz, 3)

	args := append([]string{"-c", dir, "-p", "3", "rotate", "--inverse", "--at", at, "earth", "--"}, xyz...)
	code, back, _ := runCLI(t, args...)
	require.Equal(t, 0, code)
	assert.Equal(t, "7000000.000 0.000 0.000\n", strings.ReplaceAll(back, "-0.000", "0.000"))
}

func TestRotateSweep(t *testing.T) {
	dir := configDir(t)

	code, out, _ := runCLI(t, "-c", dir, "-p", "3", "rotate", "moon", "1000", "0", "0",
		"--at", "2026-01-01T00:00:00Z", "--until", "2026-01-01T02:00:00Z", "--step", "1h")
	require.Equal(t, 0, code)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "2026-01-01T00:00:00Z "))
	assert.True(t, strings.HasPrefix(lines[2], "2026-01-01T02:00:00Z "))

	code, _, _ = runCLI(t, "-c", dir, "rotate", "moon", "1", "0", "0",
		"--at", "2026-01-02T00:00:00Z", "--until", "2026-01-01T00:00:00Z")
	assert.Equal(t, 99, code)
}

func TestInitFailureExitCodes(t *testing.T) {
	code, _, errOut := runCLI(t, "-c", filepath.Join(t.TempDir(), "missing"), "datums")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "configuration not found")

	empty := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(empty, "bad.yaml"), []byte("datums:\n  - name: x\n"), 0o644))
	code, _, _ = runCLI(t, "-c", empty, "datums")
	assert.Equal(t, 2, code)
}

func TestUsageErrors(t *testing.T) {
	code, _, _ := runCLI(t, "xyz2llr", "1", "2")
	assert.Equal(t, 99, code)

	code, _, errOut := runCLI(t, "xyz2llr", "1", "two", "3")
	assert.Equal(t, 99, code)
	assert.Contains(t, errOut, `invalid number "two"`)

	code, _, _ = runCLI(t, "rotate", "earth", "1", "2", "3", "--at", "noon")
	assert.Equal(t, 99, code)
}
