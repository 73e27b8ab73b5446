package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/cootrans/internal/config"
	"github.com/signalsfoundry/cootrans/internal/logging"
	"github.com/signalsfoundry/cootrans/model"
	"github.com/signalsfoundry/cootrans/registry"
)

// DefaultDatumPattern selects datum files below the configuration directory.
const DefaultDatumPattern = "**/*.{yaml,yml,json}"

// J2000 is the epoch used when a uniform rotation omits one.
var J2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// DatumSet is the outcome of loading a configuration directory.
type DatumSet struct {
	Version  string
	Registry *registry.Registry
	Files    []string // files that contributed at least one datum
	Skipped  int      // entries rejected by validation or as duplicates
	BadFiles int      // files that could not be decoded
}

// LoadSummary describes what a single datum document contributed.
type LoadSummary struct {
	Version string
	Loaded  []string
	Skipped int
}

// Wire shapes; unexported so the file format can evolve independently of model.
type datumFile struct {
	Version string       `yaml:"version"`
	Datums  []datumEntry `yaml:"datums"`
}

type datumEntry struct {
	Name              string      `yaml:"name"`
	Aliases           []string    `yaml:"aliases"`
	EquatorialRadius  *quantity   `yaml:"equatorial_radius"`
	Flattening        *quantity   `yaml:"flattening"`
	InverseFlattening *quantity   `yaml:"inverse_flattening"`
	PolarRadius       *quantity   `yaml:"polar_radius"`
	Rotation          *rotationIn `yaml:"rotation"`
}

type rotationIn struct {
	Model               string    `yaml:"model"`
	Rate                *quantity `yaml:"rate"` // rad/s
	SiderealPeriodHours *quantity `yaml:"sidereal_period_hours"`
	PrimeMeridianDeg    *quantity `yaml:"prime_meridian_deg"`
	Epoch               string    `yaml:"epoch"`
}

// quantity is a number written either as a YAML number or as a decimal
// string, including the ratio form "1/298.257223563".
type quantity float64

func (q *quantity) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	v, err := parseQuantity(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*q = quantity(v)
	return nil
}

func parseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := decimalFloat(num)
		if err != nil {
			return 0, err
		}
		d, err := decimalFloat(den)
		if err != nil {
			return 0, err
		}
		if d == 0 {
			return 0, fmt.Errorf("quantity %q divides by zero", s)
		}
		return n / d, nil
	}
	return decimalFloat(s)
}

func decimalFloat(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	f, _ := d.Float64()
	return f, nil
}

func (q *quantity) float() (float64, bool) {
	if q == nil {
		return 0, false
	}
	return float64(*q), true
}

// LoadDatums decodes one datum document from r into reg. Invalid and
// duplicate entries are skipped with a warning; only a document that cannot
// be decoded at all is an error.
func LoadDatums(reg *registry.Registry, r io.Reader, source string, log logging.Logger) (*LoadSummary, error) {
	if reg == nil {
		return nil, fmt.Errorf("LoadDatums: registry is nil")
	}
	if log == nil {
		log = logging.Noop()
	}

	var payload datumFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("LoadDatums: decode %s: %w", source, err)
	}

	ctx := context.Background()
	summary := &LoadSummary{Version: strings.TrimSpace(payload.Version)}
	for i, entry := range payload.Datums {
		d, err := entry.toDatum()
		if err == nil {
			d.Source = source
			err = reg.Add(d)
		}
		if err != nil {
			summary.Skipped++
			log.Warn(ctx, "skipping datum entry",
				logging.String("source", source),
				logging.Int("index", i),
				logging.String("name", entry.Name),
				logging.Err(err),
			)
			continue
		}
		summary.Loaded = append(summary.Loaded, registry.NormalizeKey(d.Name))
	}
	return summary, nil
}

func (e datumEntry) toDatum() (model.Datum, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return model.Datum{}, fmt.Errorf("name is required")
	}
	a, ok := e.EquatorialRadius.float()
	if !ok {
		return model.Datum{}, fmt.Errorf("equatorial_radius is required")
	}
	if !(a > 0) || math.IsInf(a, 0) {
		return model.Datum{}, fmt.Errorf("equatorial_radius must be positive, got %g", a)
	}

	f, err := e.flattening(a)
	if err != nil {
		return model.Datum{}, err
	}

	rot, err := e.Rotation.toModel()
	if err != nil {
		return model.Datum{}, fmt.Errorf("rotation: %w", err)
	}

	return model.Datum{
		Name:             name,
		Aliases:          e.Aliases,
		EquatorialRadius: a,
		Flattening:       f,
		Rotation:         rot,
	}, nil
}

// flattening resolves the single optional shape parameter into f.
func (e datumEntry) flattening(a float64) (float64, error) {
	f, hasF := e.Flattening.float()
	inv, hasInv := e.InverseFlattening.float()
	b, hasB := e.PolarRadius.float()

	set := 0
	for _, has := range []bool{hasF, hasInv, hasB} {
		if has {
			set++
		}
	}
	if set > 1 {
		return 0, fmt.Errorf("at most one of flattening, inverse_flattening, polar_radius may be set")
	}

	switch {
	case hasInv:
		if !(inv > 1) || math.IsInf(inv, 0) {
			return 0, fmt.Errorf("inverse_flattening must be greater than 1, got %g", inv)
		}
		f = 1 / inv
	case hasB:
		if !(b > 0) || b > a {
			return 0, fmt.Errorf("polar_radius must be in (0, %g], got %g", a, b)
		}
		f = (a - b) / a
	case !hasF:
		f = 0
	}
	if !(f >= 0 && f < 1) {
		return 0, fmt.Errorf("flattening must be in [0, 1), got %g", f)
	}
	return f, nil
}

func (r *rotationIn) toModel() (*model.RotationModel, error) {
	if r == nil {
		return nil, nil
	}

	rot := &model.RotationModel{Epoch: J2000}
	if w0, ok := r.PrimeMeridianDeg.float(); ok {
		rot.PrimeMeridianAtEpoch = w0 * math.Pi / 180
	}
	if r.Epoch != "" {
		t, err := time.Parse(time.RFC3339, r.Epoch)
		if err != nil {
			return nil, fmt.Errorf("epoch: %w", err)
		}
		rot.Epoch = t.UTC()
	}

	switch model.RotationKind(strings.ToLower(strings.TrimSpace(r.Model))) {
	case model.RotationGMST:
		rot.Kind = model.RotationGMST
		return rot, nil
	case model.RotationUniform, "":
		rot.Kind = model.RotationUniform
	default:
		return nil, fmt.Errorf("unknown model %q", r.Model)
	}

	rate, hasRate := r.Rate.float()
	period, hasPeriod := r.SiderealPeriodHours.float()
	switch {
	case hasRate && hasPeriod:
		return nil, fmt.Errorf("set either rate or sidereal_period_hours, not both")
	case hasPeriod:
		if period == 0 || math.IsInf(period, 0) {
			return nil, fmt.Errorf("sidereal_period_hours must be non-zero")
		}
		// A negative period denotes retrograde spin.
		rate = 2 * math.Pi / (period * 3600)
	case !hasRate:
		return nil, fmt.Errorf("uniform rotation needs rate or sidereal_period_hours")
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("rate must be finite")
	}
	rot.Rate = rate
	return rot, nil
}

// checkConfigDir reports ErrConfigNotFound when dir is missing or is not a
// directory.
func checkConfigDir(op, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &InitError{Op: op, Path: dir, Kind: ErrConfigNotFound, Err: err}
	}
	if !info.IsDir() {
		return &InitError{Op: op, Path: dir, Kind: ErrConfigNotFound, Err: fmt.Errorf("not a directory")}
	}
	return nil
}

// LoadDatumDirectory discovers every datum file under dir matching pattern,
// loads them in lexical order into a fresh registry and freezes it.
func LoadDatumDirectory(dir, pattern string, log logging.Logger) (*DatumSet, error) {
	const op = "LoadDatumDirectory"
	if log == nil {
		log = logging.Noop()
	}
	if pattern == "" {
		pattern = DefaultDatumPattern
	}

	if err := checkConfigDir(op, dir); err != nil {
		return nil, err
	}

	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &InitError{Op: op, Path: dir, Kind: ErrConfigNotFound, Err: fmt.Errorf("glob %q: %w", pattern, err)}
	}
	files := matches[:0]
	for _, m := range matches {
		if m == config.FileName {
			continue
		}
		files = append(files, m)
	}
	if len(files) == 0 {
		return nil, &InitError{Op: op, Path: dir, Kind: ErrConfigNotFound, Err: fmt.Errorf("no datum files match %q", pattern)}
	}
	sort.Strings(files)

	ctx := context.Background()
	set := &DatumSet{Registry: registry.New()}
	for _, name := range files {
		summary, err := loadDatumFile(set.Registry, fsys, name, log)
		if err != nil {
			set.BadFiles++
			log.Warn(ctx, "skipping datum file", logging.String("file", name), logging.Err(err))
			continue
		}
		set.Skipped += summary.Skipped
		if len(summary.Loaded) > 0 {
			set.Files = append(set.Files, name)
		}
		switch {
		case summary.Version == "":
		case set.Version == "":
			set.Version = summary.Version
		case set.Version != summary.Version:
			log.Warn(ctx, "datum files declare different versions; keeping the first",
				logging.String("file", name),
				logging.String("version", summary.Version),
				logging.String("kept", set.Version),
			)
		}
	}

	if set.Registry.Len() == 0 {
		return nil, &InitError{
			Op:   op,
			Path: dir,
			Kind: ErrMalformedDatum,
			Err:  fmt.Errorf("%d file(s) yielded no valid datum", len(files)),
		}
	}

	set.Registry.SetVersion(set.Version)
	set.Registry.Freeze()
	log.Info(ctx, "datums loaded",
		logging.String("dir", dir),
		logging.Int("datums", set.Registry.Len()),
		logging.Int("files", len(set.Files)),
		logging.Int("skipped", set.Skipped),
		logging.String("version", set.Version),
	)
	return set, nil
}

func loadDatumFile(reg *registry.Registry, fsys fs.FS, name string, log logging.Logger) (*LoadSummary, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return LoadDatums(reg, bytes.NewReader(data), path.Clean(name), log)
}
