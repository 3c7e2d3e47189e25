package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/enade/internal/config"
	"github.com/JonMunkholm/enade/internal/core"
	"github.com/JonMunkholm/enade/internal/schema"
)

// FileSpec is one source file of a run and how to read it.
type FileSpec struct {
	Path    string
	Options core.ExtractOptions
}

// Plan is everything a run needs, resolved from configuration up front so a
// misconfiguration fails before any file is read.
type Plan struct {
	Files      []FileSpec
	Dimensions core.DimensionSources
	Target     core.Target

	// Workers is how many files are extracted and transformed at once.
	Workers int

	// ContinueOnError skips failing files instead of aborting the run.
	ContinueOnError bool

	// Timeout bounds the whole run; zero means none.
	Timeout time.Duration
}

// PlanFromConfig resolves cfg into a Plan. db is used by database output
// formats and may be nil otherwise.
func PlanFromConfig(cfg *config.Config, db core.DB) (Plan, error) {
	compression, err := core.ParseCompression(cfg.Source.Compression)
	if err != nil {
		return Plan{}, err
	}

	def, ok := core.Get(cfg.Output.Format)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", core.ErrUnknownFormat, cfg.Output.Format)
	}

	paths, err := sourceFiles(cfg.Source)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Dimensions: core.DimensionSources{
			Groups:       cfg.Dimensions.Groups,
			Areas:        cfg.Dimensions.Areas,
			Institutions: cfg.Dimensions.Institutions,
			Separator:    firstRune(cfg.Dimensions.Separator, ','),
			Encoding:     cfg.Dimensions.Encoding,
		},
		Target: core.Target{
			Format:      def.Key,
			DB:          db,
			Table:       cfg.Output.Table,
			CreateTable: cfg.Output.CreateTable,
			Truncate:    cfg.Output.Truncate,
		},
		Workers:         cfg.Pipeline.Workers,
		ContinueOnError: cfg.Pipeline.ContinueOnError,
		Timeout:         cfg.Pipeline.Timeout,
	}
	if def.WriteFile != nil {
		plan.Target.Path = cfg.Output.PathFor(def.Extension)
	}

	for _, p := range paths {
		plan.Files = append(plan.Files, FileSpec{
			Path: p,
			Options: core.ExtractOptions{
				Decimal:     cfg.Source.DecimalFor(p),
				Compression: compression,
				Encoding:    cfg.Source.Encoding,
				Separator:   firstRune(cfg.Source.Separator, core.DefaultSeparator),
			},
		})
	}

	return plan, nil
}

// sourceFiles returns the configured files resolved against the source
// directory, or every ENADE_* file found there in name order.
func sourceFiles(src config.SourceConfig) ([]string, error) {
	if len(src.Files) > 0 {
		paths := make([]string, len(src.Files))
		for i, f := range src.Files {
			paths[i] = src.Resolve(f)
		}
		return paths, nil
	}

	matches, err := filepath.Glob(filepath.Join(src.Dir, "ENADE_*"))
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, m := range matches {
		name := strings.ToLower(filepath.Base(m))
		for _, suffix := range schema.SourceSuffixes {
			if strings.HasSuffix(name, suffix) {
				paths = append(paths, m)
				break
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", core.ErrNoSourceFiles, src.Dir)
	}

	sort.Strings(paths)
	return paths, nil
}

func firstRune(s string, def rune) rune {
	for _, r := range s {
		return r
	}
	return def
}
