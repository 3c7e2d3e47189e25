package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/enade/internal/lookup"
	"github.com/JonMunkholm/enade/internal/schema"
)

// ContextCheckInterval is how many rows are read between context checks.
const ContextCheckInterval = 10000

// DefaultSeparator is the field separator of the microdata files.
const DefaultSeparator = ';'

// ExtractOptions controls how a source file is read.
type ExtractOptions struct {
	// Decimal is the score decimal separator, '.' or ','. Zero uses the
	// default of the file's year.
	Decimal     rune
	Compression Compression
	Encoding    string
	Separator   rune

	// Progress, when set, is called every ContextCheckInterval rows with the
	// rows read so far and the percentage of the file consumed.
	Progress func(rows, percent int)
}

var synthesizedModality = strconv.Itoa(lookup.ModalityInPerson)

// Extract reads one yearly microdata file into canonical records.
//
// The layout and year quirks are resolved from the file's base name. No rows
// are filtered here; scores that do not parse are kept as missing.
func Extract(ctx context.Context, path string, opts ExtractOptions) (*Extraction, error) {
	profile := schema.Resolve(path)

	decimal := opts.Decimal
	if decimal == 0 {
		decimal = profile.Decimal
	}
	if decimal != '.' && decimal != ',' {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecimal, decimal)
	}
	profile.Decimal = decimal

	src, err := OpenSource(path, opts.Compression, opts.Encoding)
	if err != nil {
		if errors.Is(err, ErrUnknownEncoding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, profile.File, err)
	}
	defer src.Close()

	r := csv.NewReader(src)
	r.Comma = DefaultSeparator
	if opts.Separator != 0 {
		r.Comma = opts.Separator
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty file")
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, profile.File, err)
	}

	cols, err := mapColumns(header, profile.Variant)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", profile.File, err)
	}

	ext := &Extraction{Profile: profile}
	line := 1

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, profile.File, err)
		}

		if line%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if opts.Progress != nil {
				opts.Progress(line-1, src.Counter.Progress())
			}
		}

		rec, err := cols.record(row, profile, &ext.Stats)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", profile.File, line, err)
		}
		rec.Line = line
		ext.Records = append(ext.Records, rec)
	}

	ext.Stats.Rows = len(ext.Records)
	ext.Stats.Bytes = src.Counter.BytesRead
	return ext, nil
}

// columnMap holds the position of every canonical column in a raw header.
type columnMap map[string]int

// mapColumns resolves the variant's raw headers to positions. Every column the
// variant reads must be present; extra columns are ignored.
func mapColumns(header []string, v schema.Variant) (columnMap, error) {
	idx := MakeHeaderIndex(header)
	cols := make(columnMap, len(v.Fields))

	var missing []string
	for _, f := range v.Fields {
		pos, ok := idx[f.Raw]
		if !ok {
			missing = append(missing, f.Raw)
			continue
		}
		cols[f.Canonical] = pos
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (%s layout)", ErrMissingColumn, strings.Join(missing, ", "), v.Name)
	}
	return cols, nil
}

func (c columnMap) raw(row []string, col string) string {
	i, ok := c[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (c columnMap) code(row []string, col string, stats *ExtractStats) string {
	v := CleanCell(c.raw(row, col))
	if v == JudicialMarker && isJudicialColumn(col) {
		stats.JudicialSubstitutions++
		return JudicialCode
	}
	return v
}

func isJudicialColumn(col string) bool {
	for _, j := range schema.JudicialColumns {
		if j == col {
			return true
		}
	}
	return false
}

func (c columnMap) score(row []string, col string, p schema.Profile, stats *ExtractStats) Score {
	raw := c.raw(row, col)
	if p.BlankScoresAsZero && raw != "" && strings.TrimSpace(raw) == "" {
		stats.BlankScoresZeroed++
		raw = "0"
	}
	s := ToPgFloat8(CleanCell(raw), p.Decimal)
	if !s.Valid {
		stats.MissingScores++
	}
	return s
}

func (c columnMap) record(row []string, p schema.Profile, stats *ExtractStats) (Record, error) {
	year, err := c.year(row, p)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Year:         year,
		Institution:  c.code(row, schema.ColInstitution, stats),
		Group:        c.code(row, schema.ColGroup, stats),
		Course:       c.code(row, schema.ColCourse, stats),
		Modality:     c.code(row, schema.ColModality, stats),
		Municipality: c.code(row, schema.ColMunicipality, stats),
		State:        c.code(row, schema.ColState, stats),
		Age:          c.code(row, schema.ColAge, stats),
		Sex:          c.code(row, schema.ColSex, stats),
		Enrollment:   c.code(row, schema.ColEnrollment, stats),
		Presence:     c.code(row, schema.ColPresence, stats),
		Score:        c.score(row, schema.ColScore, p, stats),
		ScoreGeneral: c.score(row, schema.ColScoreGeneral, p, stats),
		ScoreSpecial: c.score(row, schema.ColScoreSpecial, p, stats),
	}
	if p.Variant.SynthesizeModality {
		rec.Modality = synthesizedModality
	}
	return rec, nil
}

// year reads NU_ANO, falling back to the year in the file name when the cell
// is empty or not a number.
func (c columnMap) year(row []string, p schema.Profile) (int, error) {
	raw := CleanCell(c.raw(row, schema.ColYear))
	year, ok := ParseCode(raw)
	if !ok {
		if p.Year == 0 {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalidCode, schema.ColYear, raw)
		}
		return p.Year, nil
	}
	if p.CorrectNegativeYear && year == -p.Year {
		year = p.Year
	}
	return year, nil
}
