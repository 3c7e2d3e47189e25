// Package lookup holds the static code-to-label tables used to enrich ENADE records.
//
// Every lookup is a total function: a code outside the table's domain maps to
// that table's fallback constant, never to an error or a panic.
package lookup

import "strings"

// Fallback labels returned for codes outside each table's domain.
const (
	FallbackInstitution = "Outra"
	FallbackModality    = "err"
	FallbackState       = "Outro"
	FallbackSex         = "Outro"
	FallbackEnrollment  = "err"
	FallbackPresence    = "err"
)

// Presence codes (TP_PRES).
const (
	PresenceAbsent  = 222
	PresenceValid   = 555 // present with a valid result
	PresenceInvalid = 556
)

// Modality codes (CO_MODALIDADE).
const (
	ModalityEaD      = 0
	ModalityInPerson = 1
)

// Enrollment-type codes (TP_INSCRICAO) as published for every year except
// EnrollmentFlipYear, whose data dictionary swaps them.
const (
	EnrollmentCompleter = 0
	EnrollmentEntrant   = 1

	EnrollmentFlipYear = 2017
)

const (
	labelCompleter = "Concluinte"
	labelEntrant   = "Ingressante"
)

// Institutions maps the IES codes (e-MEC) of interest to their acronyms.
var Institutions = map[int]string{
	569:   "UFPA",
	15059: "UFOPA",
	18440: "UNIFESSPA",
	1813:  "IFPA",
	590:   "UFRA",
	830:   "UNIFAP",
	3849:  "UFT",
}

// Modalities maps CO_MODALIDADE to its label.
var Modalities = map[int]string{
	ModalityEaD:      "EaD",
	ModalityInPerson: "Presencial",
}

// States maps IBGE state codes (CO_UF_CURSO) to the state abbreviation.
// Para is 15; 11 is Rondonia.
var States = map[int]string{
	11: "RO",
	12: "AC",
	13: "AM",
	14: "RR",
	15: "PA",
	16: "AP",
	17: "TO",
	21: "MA",
	22: "PI",
	23: "CE",
	24: "RN",
	25: "PB",
	26: "PE",
	27: "AL",
	28: "SE",
	29: "BA",
	31: "MG",
	32: "ES",
	33: "RJ",
	35: "SP",
	41: "PR",
	42: "SC",
	43: "RS",
	50: "MS",
	51: "MT",
	52: "GO",
	53: "DF",
}

// Sexes maps TP_SEXO to its label.
var Sexes = map[string]string{
	"M": "Masculino",
	"F": "Feminino",
	"N": "Outro",
}

// Presences maps TP_PRES to its label.
var Presences = map[int]string{
	PresenceAbsent:  "Ausente",
	PresenceValid:   "Presente",
	PresenceInvalid: "Presente-Invalido",
}

// InstitutionName returns the acronym for an IES code, or FallbackInstitution.
func InstitutionName(code int) string {
	if name, ok := Institutions[code]; ok {
		return name
	}
	return FallbackInstitution
}

// ModalityName returns the label for a modality code, or FallbackModality.
func ModalityName(code int) string {
	if name, ok := Modalities[code]; ok {
		return name
	}
	return FallbackModality
}

// StateName returns the state abbreviation for an IBGE code, or FallbackState.
func StateName(code int) string {
	if name, ok := States[code]; ok {
		return name
	}
	return FallbackState
}

// SexName returns the label for a TP_SEXO value, or FallbackSex.
// Matching ignores surrounding whitespace and case.
func SexName(code string) string {
	if name, ok := Sexes[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return name
	}
	return FallbackSex
}

// EnrollmentName returns the enrollment-type label for a TP_INSCRICAO code.
//
// The 2017 microdata encodes the type in the opposite direction from every
// other year (1 = completer, 0 = entrant). The year is therefore part of the key.
func EnrollmentName(code, year int) string {
	if year == EnrollmentFlipYear {
		switch code {
		case EnrollmentEntrant:
			return labelCompleter
		case EnrollmentCompleter:
			return labelEntrant
		}
		return FallbackEnrollment
	}

	switch code {
	case EnrollmentCompleter:
		return labelCompleter
	case EnrollmentEntrant:
		return labelEntrant
	}
	return FallbackEnrollment
}

// PresenceName returns the label for a TP_PRES code, or FallbackPresence.
func PresenceName(code int) string {
	if name, ok := Presences[code]; ok {
		return name
	}
	return FallbackPresence
}

// DefaultInstitutions returns the eligible IES codes used when no
// institutions file is configured.
func DefaultInstitutions() []int {
	return []int{569, 15059, 18440, 1813, 590, 830, 3849}
}
