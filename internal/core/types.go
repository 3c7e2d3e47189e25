package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/enade/internal/schema"
)

// DB is the database handle used by database-backed output formats.
// Satisfied by *pgxpool.Pool and *pgx.Conn.
type DB interface {
	Begin(context.Context) (pgx.Tx, error)
}

// Score is a nullable exam score.
type Score = pgtype.Float8

// Record is one respondent row after extraction.
//
// Code fields hold the trimmed raw token so that values the extractor does not
// understand survive until the transform stage decides what to do with them.
type Record struct {
	Line int // 1-based line in the source file, header included

	Year         int
	Institution  string
	Group        string
	Course       string
	Modality     string
	Municipality string
	State        string
	Age          string
	Sex          string
	Enrollment   string
	Presence     string

	Score        Score
	ScoreGeneral Score
	ScoreSpecial Score
}

// Evaluation is one row of the consolidated dataset. Field order matches
// schema.OutputColumns.
type Evaluation struct {
	Year            int
	Institution     int
	InstitutionName string
	Group           pgtype.Int8
	GroupName       pgtype.Text
	Course          pgtype.Int8
	Area            pgtype.Int8
	AreaName        pgtype.Text
	Modality        pgtype.Int8
	ModalityName    string
	Municipality    pgtype.Int8
	State           pgtype.Int8
	StateName       string
	Age             pgtype.Int8
	Sex             string
	SexName         string
	Enrollment      pgtype.Int8
	EnrollmentName  string
	Presence        int
	PresenceName    string
	Score           Score
	ScoreGeneral    Score
	ScoreSpecial    Score
}

// Values returns the row in schema.OutputColumns order. Missing values are
// nil, integers are int64, scores are float64 and labels are string.
func (e Evaluation) Values() []any {
	return []any{
		int64(e.Year),
		int64(e.Institution),
		e.InstitutionName,
		intValue(e.Group),
		textValue(e.GroupName),
		intValue(e.Course),
		intValue(e.Area),
		textValue(e.AreaName),
		intValue(e.Modality),
		e.ModalityName,
		intValue(e.Municipality),
		intValue(e.State),
		e.StateName,
		intValue(e.Age),
		e.Sex,
		e.SexName,
		intValue(e.Enrollment),
		e.EnrollmentName,
		int64(e.Presence),
		e.PresenceName,
		floatValue(e.Score),
		floatValue(e.ScoreGeneral),
		floatValue(e.ScoreSpecial),
	}
}

func intValue(v pgtype.Int8) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func textValue(v pgtype.Text) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

func floatValue(v Score) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

// Extraction is the result of reading one source file.
type Extraction struct {
	Profile schema.Profile
	Records []Record
	Stats   ExtractStats
}

// ExtractStats summarizes one extraction.
type ExtractStats struct {
	Rows                  int   `json:"rows"`
	Bytes                 int64 `json:"bytes"`
	JudicialSubstitutions int   `json:"judicial_substitutions"`
	BlankScoresZeroed     int   `json:"blank_scores_zeroed"`
	MissingScores         int   `json:"missing_scores"`
}

// TransformStats summarizes one transform call.
type TransformStats struct {
	Input       int `json:"input"`
	NotEligible int `json:"not_eligible"`
	NotPresent  int `json:"not_present"`
	Kept        int `json:"kept"`
	GroupMisses int `json:"group_misses"`
	AreaMisses  int `json:"area_misses"`
}

// Add accumulates o into s.
func (s *TransformStats) Add(o TransformStats) {
	s.Input += o.Input
	s.NotEligible += o.NotEligible
	s.NotPresent += o.NotPresent
	s.Kept += o.Kept
	s.GroupMisses += o.GroupMisses
	s.AreaMisses += o.AreaMisses
}

// Dimensions bundles the reference tables a transform joins against.
// They are read-only once loaded and safe to share between goroutines.
type Dimensions struct {
	Groups       Groups
	Areas        Areas
	Institutions Institutions
}
