// Package schema describes the raw column layouts of the ENADE microdata files
// and the canonical column set every layout is normalized to.
//
// There are exactly two layouts: Early (files up to 2009) and Current (2010
// onwards). A file's layout, its year, and the year-specific encoding quirks
// are resolved once from its file name by Resolve; nothing is inferred from
// the file contents.
package schema

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Canonical column names, as they appear after extraction.
const (
	ColYear         = "NU_ANO"
	ColInstitution  = "CO_IES"
	ColGroup        = "CO_GRUPO"
	ColCourse       = "CO_CURSO"
	ColModality     = "CO_MODALIDADE"
	ColMunicipality = "CO_MUNIC_CURSO"
	ColState        = "CO_UF_CURSO"
	ColAge          = "NU_IDADE"
	ColSex          = "TP_SEXO"
	ColEnrollment   = "TP_INSCRICAO"
	ColPresence     = "TP_PRES"
	ColScore        = "NT_GER"
	ColScoreGeneral = "NT_FG"
	ColScoreSpecial = "NT_CE"
)

// Output-only columns derived by the transform stage.
const (
	ColInstitutionName = "NM_IES"
	ColGroupName       = "NM_GRUPO"
	ColArea            = "CO_AREA"
	ColAreaName        = "NM_AREA"
	ColModalityName    = "NM_MODALIDADE"
	ColStateName       = "NM_UF_CURSO"
	ColSexName         = "NM_SEXO"
	ColEnrollmentName  = "NM_INSCRICAO"
	ColPresenceName    = "NM_PRES"
)

// CanonicalColumns is the column set produced by extraction, in order.
var CanonicalColumns = []string{
	ColYear, ColInstitution, ColGroup, ColCourse, ColModality, ColMunicipality,
	ColState, ColAge, ColSex, ColEnrollment, ColPresence,
	ColScore, ColScoreGeneral, ColScoreSpecial,
}

// Kind is the storage type of an output column.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindText
)

// Column is one column of the consolidated dataset.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// Output is the fixed column layout of the consolidated dataset.
var Output = []Column{
	{Name: ColYear, Kind: KindInt},
	{Name: ColInstitution, Kind: KindInt},
	{Name: ColInstitutionName, Kind: KindText},
	{Name: ColGroup, Kind: KindInt, Nullable: true},
	{Name: ColGroupName, Kind: KindText, Nullable: true},
	{Name: ColCourse, Kind: KindInt, Nullable: true},
	{Name: ColArea, Kind: KindInt, Nullable: true},
	{Name: ColAreaName, Kind: KindText, Nullable: true},
	{Name: ColModality, Kind: KindInt, Nullable: true},
	{Name: ColModalityName, Kind: KindText},
	{Name: ColMunicipality, Kind: KindInt, Nullable: true},
	{Name: ColState, Kind: KindInt, Nullable: true},
	{Name: ColStateName, Kind: KindText},
	{Name: ColAge, Kind: KindInt, Nullable: true},
	{Name: ColSex, Kind: KindText},
	{Name: ColSexName, Kind: KindText},
	{Name: ColEnrollment, Kind: KindInt, Nullable: true},
	{Name: ColEnrollmentName, Kind: KindText},
	{Name: ColPresence, Kind: KindInt},
	{Name: ColPresenceName, Kind: KindText},
	{Name: ColScore, Kind: KindFloat, Nullable: true},
	{Name: ColScoreGeneral, Kind: KindFloat, Nullable: true},
	{Name: ColScoreSpecial, Kind: KindFloat, Nullable: true},
}

// OutputColumns lists the names of Output, in order.
var OutputColumns = func() []string {
	names := make([]string, len(Output))
	for i, c := range Output {
		names[i] = c.Name
	}
	return names
}()

// JudicialColumns are the code columns that may carry the judicial-withdrawal marker.
var JudicialColumns = []string{ColInstitution, ColCourse, ColMunicipality}

// ScoreColumns are coerced to numbers during extraction.
var ScoreColumns = []string{ColScore, ColScoreGeneral, ColScoreSpecial}

// FieldSpec maps one raw header to its canonical column.
type FieldSpec struct {
	Raw       string // Header as found in the file, uppercased
	Canonical string // Column name after normalization
}

// Variant is one of the fixed raw layouts.
type Variant struct {
	Name   string
	Fields []FieldSpec

	// SynthesizeModality adds CO_MODALIDADE = ModalityInPerson to every row.
	// Files of this layout predate distance learning in the microdata.
	SynthesizeModality bool
}

// Canonical returns the canonical name for a raw header and whether the
// variant reads that header at all.
func (v Variant) Canonical(raw string) (string, bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	for _, f := range v.Fields {
		if f.Raw == raw {
			return f.Canonical, true
		}
	}
	return "", false
}

func same(cols ...string) []FieldSpec {
	specs := make([]FieldSpec, len(cols))
	for i, c := range cols {
		specs[i] = FieldSpec{Raw: c, Canonical: c}
	}
	return specs
}

// Early is the layout of the 2004-2009 files.
var Early = Variant{
	Name: "early",
	Fields: append(same(ColYear, ColInstitution, ColGroup, ColCourse),
		FieldSpec{Raw: "CO_MUNIC_HABIL", Canonical: ColMunicipality},
		FieldSpec{Raw: "CO_UF_HABIL", Canonical: ColState},
		FieldSpec{Raw: ColAge, Canonical: ColAge},
		FieldSpec{Raw: ColSex, Canonical: ColSex},
		FieldSpec{Raw: "IN_GRAD", Canonical: ColEnrollment},
		FieldSpec{Raw: ColPresence, Canonical: ColPresence},
		FieldSpec{Raw: ColScore, Canonical: ColScore},
		FieldSpec{Raw: ColScoreGeneral, Canonical: ColScoreGeneral},
		FieldSpec{Raw: ColScoreSpecial, Canonical: ColScoreSpecial},
	),
	SynthesizeModality: true,
}

// Current is the layout of the files from 2010 onwards.
var Current = Variant{
	Name: "current",
	Fields: same(
		ColYear, ColInstitution, ColGroup, ColCourse, ColModality, ColMunicipality,
		ColState, ColAge, ColSex, ColEnrollment, ColPresence,
		ColScore, ColScoreGeneral, ColScoreSpecial,
	),
}

// SourceSuffixes are the file name endings a yearly microdata file is
// published or stored with.
var SourceSuffixes = []string{".csv", ".csv.gz", ".txt", ".txt.gz"}

// earlyFiles lists every file name published in the Early layout.
var earlyFiles = func() map[string]bool {
	m := make(map[string]bool)
	for year := 2004; year <= 2009; year++ {
		base := "ENADE_" + strconv.Itoa(year)
		for _, ext := range SourceSuffixes {
			m[base+ext] = true
		}
	}
	return m
}()

// Year-specific encoding quirks.
type quirks struct {
	correctNegativeYear bool
	blankScoresAsZero   bool
	commaDecimal        bool
}

var yearQuirks = map[int]quirks{
	2005: {correctNegativeYear: true},
	2016: {blankScoresAsZero: true, commaDecimal: true},
	2017: {commaDecimal: true},
}

// Profile is everything the extractor needs to know about one source file.
type Profile struct {
	File    string
	Variant Variant
	Year    int // Year from the file name; 0 if the name carries none

	// CorrectNegativeYear turns the mis-encoded NU_ANO -Year back into Year.
	CorrectNegativeYear bool

	// BlankScoresAsZero reads whitespace-only score cells as 0 instead of missing.
	BlankScoresAsZero bool

	// Decimal is the separator the file is published with.
	Decimal rune
}

var yearPattern = regexp.MustCompile(`(?i)enade_(\d{4})`)

// Resolve returns the profile for a source file, keyed on its base name.
func Resolve(path string) Profile {
	base := filepath.Base(path)

	p := Profile{
		File:    base,
		Variant: Current,
		Decimal: '.',
	}

	if earlyFiles[canonicalName(base)] {
		p.Variant = Early
	}

	if m := yearPattern.FindStringSubmatch(base); m != nil {
		p.Year, _ = strconv.Atoi(m[1])
	}

	q := yearQuirks[p.Year]
	p.CorrectNegativeYear = q.correctNegativeYear
	p.BlankScoresAsZero = q.blankScoresAsZero
	if q.commaDecimal {
		p.Decimal = ','
	}

	return p
}

// canonicalName upper-cases the stem of a file name and lower-cases its
// extensions, so "enade_2005.CSV.GZ" compares equal to "ENADE_2005.csv.gz".
func canonicalName(base string) string {
	stem, ext, found := strings.Cut(base, ".")
	if !found {
		return strings.ToUpper(stem)
	}
	return strings.ToUpper(stem) + "." + strings.ToLower(ext)
}
