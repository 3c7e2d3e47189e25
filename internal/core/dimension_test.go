package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/enade/internal/lookup"
)

func TestLoadGroups(t *testing.T) {
	path := writeFixture(t, "groups.csv", []byte(
		"CO_GRUPO,NM_GRUPO\n"+
			"2,DIREITO\n"+
			"5,MEDICINA\n"+
			"2,DUPLICADO\n"+
			"x,IGNORADO\n"))

	groups, err := LoadGroups(path, ',', "")
	require.NoError(t, err)

	assert.Len(t, groups, 2)
	name, ok := groups.Name(2)
	assert.True(t, ok)
	assert.Equal(t, "DIREITO", name, "first match wins")

	_, ok = groups.Name(99)
	assert.False(t, ok)
}

func TestLoadGroups_PositionalFallback(t *testing.T) {
	path := writeFixture(t, "groups.csv", []byte(
		"codigo;nome;extra\n"+
			"21;ARQUITETURA E URBANISMO;x\n"))

	groups, err := LoadGroups(path, ';', "")
	require.NoError(t, err)
	assert.Equal(t, Groups{21: "ARQUITETURA E URBANISMO"}, groups)
}

func TestLoadGroups_SingleColumn(t *testing.T) {
	path := writeFixture(t, "groups.csv", []byte("CO_GRUPO\n2\n"))

	_, err := LoadGroups(path, ',', "")
	assert.ErrorIs(t, err, ErrDimensionUnreadable)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadAreas(t *testing.T) {
	path := writeFixture(t, "areas.csv", []byte(
		"co_curso,co_area,nm_area\n"+
			"12345,7,Ciencias Sociais Aplicadas\n"+
			"12345,8,Outra\n"+
			"999,,\n"))

	areas, err := LoadAreas(path, ',', "")
	require.NoError(t, err)
	require.Len(t, areas, 2)

	area, ok := areas.Lookup(12345)
	require.True(t, ok)
	assert.Equal(t, int64(7), area.Code.Int64)
	assert.Equal(t, "Ciencias Sociais Aplicadas", area.Name.String)

	area, ok = areas.Lookup(999)
	require.True(t, ok)
	assert.False(t, area.Code.Valid)
	assert.False(t, area.Name.Valid)
}

func TestLoadAreas_MissingColumn(t *testing.T) {
	path := writeFixture(t, "areas.csv", []byte("CO_CURSO,NM_AREA\n1,x\n"))

	_, err := LoadAreas(path, ',', "")
	require.ErrorIs(t, err, ErrDimensionUnreadable)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "CO_AREA")
}

func TestLoadInstitutions(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []int
	}{
		{"with header", "CO_IES\n569\n830\n", []int{569, 830}},
		{"without header", "569\n830\n", []int{569, 830}},
		{"extra columns", "CO_IES,NM_IES\n569,UFPA\n", []int{569}},
		{"header only", "CO_IES\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFixture(t, "ies.csv", []byte(tt.data))
			got, err := LoadInstitutions(path, ',', "")
			require.NoError(t, err)
			assert.Equal(t, NewInstitutions(tt.want...), got)
		})
	}
}

func TestLoadDimensions(t *testing.T) {
	dir := t.TempDir()

	t.Run("defaults", func(t *testing.T) {
		dims, err := LoadDimensions(DimensionSources{})
		require.NoError(t, err)
		assert.Empty(t, dims.Groups)
		assert.Empty(t, dims.Areas)
		for _, code := range lookup.DefaultInstitutions() {
			assert.True(t, dims.Institutions.Contains(code))
		}
		assert.Len(t, dims.Institutions, len(lookup.DefaultInstitutions()))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDimensions(DimensionSources{Groups: filepath.Join(dir, "nope.csv")})
		assert.ErrorIs(t, err, ErrDimensionUnreadable)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFixture(t, "areas.csv", nil)
		_, err := LoadDimensions(DimensionSources{Areas: path})
		assert.ErrorIs(t, err, ErrDimensionUnreadable)
	})

	t.Run("institutions file replaces defaults", func(t *testing.T) {
		path := writeFixture(t, "ies.csv", []byte("4242\n"))
		dims, err := LoadDimensions(DimensionSources{Institutions: path, Separator: ','})
		require.NoError(t, err)
		assert.True(t, dims.Institutions.Contains(4242))
		assert.False(t, dims.Institutions.Contains(569))
	})
}
