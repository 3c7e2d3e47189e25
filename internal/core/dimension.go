package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/enade/internal/lookup"
	"github.com/JonMunkholm/enade/internal/schema"
)

// Groups maps CO_GRUPO to the course-group name.
type Groups map[int]string

// Name returns the group name for code.
func (g Groups) Name(code int) (string, bool) {
	name, ok := g[code]
	return name, ok
}

// Area is the knowledge area a course belongs to.
type Area struct {
	Code pgtype.Int8
	Name pgtype.Text
}

// Areas maps CO_CURSO to its knowledge area.
type Areas map[int]Area

// Lookup returns the area of a course.
func (a Areas) Lookup(course int) (Area, bool) {
	area, ok := a[course]
	return area, ok
}

// Institutions is the set of eligible CO_IES codes.
type Institutions map[int]struct{}

// NewInstitutions builds an eligible set from codes.
func NewInstitutions(codes ...int) Institutions {
	set := make(Institutions, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// Contains reports whether code is eligible.
func (s Institutions) Contains(code int) bool {
	_, ok := s[code]
	return ok
}

// DimensionSources names the dimension files of a run. An empty Groups or
// Areas path yields an empty table; an empty Institutions path yields the
// default eligible set.
type DimensionSources struct {
	Groups       string
	Areas        string
	Institutions string
	Separator    rune
	Encoding     string
}

// LoadDimensions reads every dimension file named in src.
func LoadDimensions(src DimensionSources) (Dimensions, error) {
	var dims Dimensions
	var err error

	dims.Groups = Groups{}
	if src.Groups != "" {
		if dims.Groups, err = LoadGroups(src.Groups, src.Separator, src.Encoding); err != nil {
			return Dimensions{}, err
		}
	}

	dims.Areas = Areas{}
	if src.Areas != "" {
		if dims.Areas, err = LoadAreas(src.Areas, src.Separator, src.Encoding); err != nil {
			return Dimensions{}, err
		}
	}

	if src.Institutions == "" {
		dims.Institutions = NewInstitutions(lookup.DefaultInstitutions()...)
	} else if dims.Institutions, err = LoadInstitutions(src.Institutions, src.Separator, src.Encoding); err != nil {
		return Dimensions{}, err
	}

	return dims, nil
}

// LoadGroups reads a CO_GRUPO/NM_GRUPO table. Files without those headers are
// read positionally from their first two columns. The first row for a code wins.
func LoadGroups(path string, sep rune, encoding string) (Groups, error) {
	groups := Groups{}
	err := readDimension(path, sep, encoding, func(header []string, next func() ([]string, error)) error {
		idx := MakeHeaderIndex(header)
		codeCol, hasCode := idx[schema.ColGroup]
		nameCol, hasName := idx[schema.ColGroupName]
		if !hasCode || !hasName {
			if len(header) < 2 {
				return fmt.Errorf("%w: %s, %s", ErrMissingColumn, schema.ColGroup, schema.ColGroupName)
			}
			codeCol, nameCol = 0, 1
		}

		for {
			row, err := next()
			if err != nil {
				return err
			}
			if row == nil {
				return nil
			}
			code, ok := ParseCode(cell(row, codeCol))
			if !ok {
				continue
			}
			if _, seen := groups[code]; !seen {
				groups[code] = cell(row, nameCol)
			}
		}
	})
	return groups, err
}

// LoadAreas reads a CO_CURSO/CO_AREA/NM_AREA table. The first row for a course wins.
func LoadAreas(path string, sep rune, encoding string) (Areas, error) {
	areas := Areas{}
	err := readDimension(path, sep, encoding, func(header []string, next func() ([]string, error)) error {
		idx := MakeHeaderIndex(header)
		var missing []string
		for _, col := range []string{schema.ColCourse, schema.ColArea, schema.ColAreaName} {
			if _, ok := idx[col]; !ok {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %v", ErrMissingColumn, missing)
		}

		for {
			row, err := next()
			if err != nil {
				return err
			}
			if row == nil {
				return nil
			}
			course, ok := ParseCode(idx.Cell(row, schema.ColCourse))
			if !ok {
				continue
			}
			if _, seen := areas[course]; !seen {
				areas[course] = Area{
					Code: ToPgInt8(idx.Cell(row, schema.ColArea)),
					Name: ToPgText(idx.Cell(row, schema.ColAreaName)),
				}
			}
		}
	})
	return areas, err
}

// LoadInstitutions reads eligible CO_IES codes from the first column. A first
// row that is not a code is taken as a header.
func LoadInstitutions(path string, sep rune, encoding string) (Institutions, error) {
	set := Institutions{}
	err := readDimension(path, sep, encoding, func(first []string, next func() ([]string, error)) error {
		row := first
		for row != nil {
			if code, ok := ParseCode(cell(row, 0)); ok {
				set[code] = struct{}{}
			}
			var err error
			if row, err = next(); err != nil {
				return err
			}
		}
		return nil
	})
	return set, err
}

// readDimension opens a dimension file and hands its first row and a row
// iterator to read. The iterator returns a nil row at end of file.
func readDimension(path string, sep rune, encoding string, read func(header []string, next func() ([]string, error)) error) error {
	wrap := func(err error) error {
		return fmt.Errorf("%w: %s: %w", ErrDimensionUnreadable, path, err)
	}

	src, err := OpenSource(path, CompressionInfer, encoding)
	if err != nil {
		return wrap(err)
	}
	defer src.Close()

	r := csv.NewReader(src)
	if sep != 0 {
		r.Comma = sep
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return wrap(errors.New("empty file"))
	}
	if err != nil {
		return wrap(err)
	}

	next := func() ([]string, error) {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return row, err
	}

	if err := read(header, next); err != nil {
		return wrap(err)
	}
	return nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return CleanCell(row[i])
}
