package core

import (
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/enade/internal/lookup"
	"github.com/JonMunkholm/enade/internal/schema"
)

// noCode is passed to a lookup when the code is missing, so that it resolves
// to the table's fallback like any other unknown code.
const noCode = math.MinInt32

// Transform filters records to eligible institutions with a valid presence
// and enriches the survivors into Evaluations.
//
// Filters run in order: institution first, then presence. Joins against the
// groups and areas tables never drop a row; a miss leaves the joined columns
// missing. An empty result is not an error.
func Transform(records []Record, dims Dimensions) ([]Evaluation, TransformStats, error) {
	stats := TransformStats{Input: len(records)}
	out := make([]Evaluation, 0, len(records))

	for _, rec := range records {
		ies, ok := ParseCode(rec.Institution)
		if !ok || !dims.Institutions.Contains(ies) {
			stats.NotEligible++
			continue
		}

		presence, ok := ParseCode(rec.Presence)
		if !ok || presence != lookup.PresenceValid {
			stats.NotPresent++
			continue
		}

		ev, err := enrich(rec, ies, presence, dims, &stats)
		if err != nil {
			return nil, stats, err
		}
		out = append(out, ev)
	}

	stats.Kept = len(out)
	return out, stats, nil
}

func enrich(rec Record, ies, presence int, dims Dimensions, stats *TransformStats) (Evaluation, error) {
	course, err := strictCode(rec, schema.ColCourse, rec.Course)
	if err != nil {
		return Evaluation{}, err
	}
	municipality, err := strictCode(rec, schema.ColMunicipality, rec.Municipality)
	if err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{
		Year:            rec.Year,
		Institution:     ies,
		InstitutionName: lookup.InstitutionName(ies),
		Group:           ToPgInt8(rec.Group),
		Course:          course,
		Modality:        ToPgInt8(rec.Modality),
		Municipality:    municipality,
		State:           ToPgInt8(rec.State),
		Age:             ToPgInt8(rec.Age),
		Sex:             rec.Sex,
		SexName:         lookup.SexName(rec.Sex),
		Enrollment:      ToPgInt8(rec.Enrollment),
		Presence:        presence,
		PresenceName:    lookup.PresenceName(presence),
		Score:           rec.Score,
		ScoreGeneral:    rec.ScoreGeneral,
		ScoreSpecial:    rec.ScoreSpecial,
	}

	ev.ModalityName = lookup.ModalityName(codeOrNone(ev.Modality))
	ev.StateName = lookup.StateName(codeOrNone(ev.State))
	ev.EnrollmentName = lookup.EnrollmentName(codeOrNone(ev.Enrollment), rec.Year)

	if ev.Group.Valid {
		if name, ok := dims.Groups.Name(int(ev.Group.Int64)); ok {
			ev.GroupName = ToPgText(name)
		}
	}
	if !ev.GroupName.Valid {
		stats.GroupMisses++
	}

	if course.Valid {
		if area, ok := dims.Areas.Lookup(int(course.Int64)); ok {
			ev.Area = area.Code
			ev.AreaName = area.Name
		}
	}
	if !ev.Area.Valid && !ev.AreaName.Valid {
		stats.AreaMisses++
	}

	return ev, nil
}

// strictCode parses a code column that must be an integer on kept rows.
// Empty is missing; anything else that is not an integer is an error.
func strictCode(rec Record, col, raw string) (pgtype.Int8, error) {
	if raw == "" {
		return pgtype.Int8{}, nil
	}
	v := ToPgInt8(raw)
	if !v.Valid {
		return v, fmt.Errorf("%w: year %d line %d %s=%q", ErrInvalidCode, rec.Year, rec.Line, col, raw)
	}
	return v, nil
}

func codeOrNone(v pgtype.Int8) int {
	if !v.Valid {
		return noCode
	}
	return int(v.Int64)
}
