package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstitutionName(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{569, "UFPA"},
		{15059, "UFOPA"},
		{18440, "UNIFESSPA"},
		{1813, "IFPA"},
		{590, "UFRA"},
		{830, "UNIFAP"},
		{3849, "UFT"},
		{-1, FallbackInstitution},
		{0, FallbackInstitution},
		{99999, FallbackInstitution},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, InstitutionName(tt.code), "code %d", tt.code)
	}
}

func TestEnrollmentName_FlipYear(t *testing.T) {
	tests := []struct {
		name string
		code int
		year int
		want string
	}{
		{"2015 completer", 0, 2015, "Concluinte"},
		{"2015 entrant", 1, 2015, "Ingressante"},
		{"2017 code 1 is completer", 1, 2017, "Concluinte"},
		{"2017 code 0 is entrant", 0, 2017, "Ingressante"},
		{"2018 back to default", 1, 2018, "Ingressante"},
		{"2016 default", 0, 2016, "Concluinte"},
		{"unknown code", 7, 2015, FallbackEnrollment},
		{"unknown code in flip year", 7, 2017, FallbackEnrollment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnrollmentName(tt.code, tt.year))
		})
	}
}

func TestEnrollmentName_InverseForEveryOtherYear(t *testing.T) {
	for year := 2004; year <= 2022; year++ {
		if year == EnrollmentFlipYear {
			continue
		}
		assert.Equal(t, EnrollmentName(1, EnrollmentFlipYear), EnrollmentName(0, year), "year %d", year)
		assert.Equal(t, EnrollmentName(0, EnrollmentFlipYear), EnrollmentName(1, year), "year %d", year)
	}
}

func TestSexName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"M", "Masculino"},
		{"F", "Feminino"},
		{"N", "Outro"},
		{" m ", "Masculino"},
		{"", FallbackSex},
		{"X", FallbackSex},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SexName(tt.in), "input %q", tt.in)
	}
}

func TestModalityStatePresence(t *testing.T) {
	assert.Equal(t, "EaD", ModalityName(ModalityEaD))
	assert.Equal(t, "Presencial", ModalityName(ModalityInPerson))
	assert.Equal(t, FallbackModality, ModalityName(2))

	assert.Equal(t, "PA", StateName(15))
	assert.Equal(t, "RO", StateName(11), "11 is Rondonia in the IBGE table, not Para")
	assert.Equal(t, "AP", StateName(16))
	assert.Equal(t, FallbackState, StateName(99))

	assert.Equal(t, "Ausente", PresenceName(PresenceAbsent))
	assert.Equal(t, "Presente", PresenceName(PresenceValid))
	assert.Equal(t, "Presente-Invalido", PresenceName(PresenceInvalid))
	assert.Equal(t, FallbackPresence, PresenceName(333))
}

// Out-of-domain codes must resolve to the same fallback no matter how often
// or in what order the lookups are called.
func TestFallbackIsStable(t *testing.T) {
	unknown := []int{-5, 3, 42, 100000, 4}

	for round := 0; round < 3; round++ {
		for i := len(unknown) - 1; i >= 0; i-- {
			code := unknown[i]
			assert.Equal(t, FallbackInstitution, InstitutionName(code))
			assert.Equal(t, FallbackModality, ModalityName(code))
			assert.Equal(t, FallbackState, StateName(code))
			assert.Equal(t, FallbackPresence, PresenceName(code))
			assert.Equal(t, FallbackEnrollment, EnrollmentName(code, 2015))
		}
		assert.Equal(t, FallbackSex, SexName("?"))
	}
}

func TestDefaultInstitutionsHaveNames(t *testing.T) {
	codes := DefaultInstitutions()
	assert.Len(t, codes, len(Institutions))
	for _, code := range codes {
		assert.NotEqual(t, FallbackInstitution, InstitutionName(code))
	}
}
