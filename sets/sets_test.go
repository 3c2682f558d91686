package sets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var props = []string{"capacity", "CAPEX_M", "trans_cap_cost", "FOM_M"}

func TestReadList(t *testing.T) {

	type subTest struct {
		name        string
		input       string
		expected    []string
		expectedErr string
	}

	subTests := []subTest{
		{"simple", "a\nb\nc\n", []string{"a", "b", "c"}, ""},
		{"trims and skips blanks", "  a \n\n\tb\n\n", []string{"a", "b"}, ""},
		{"no trailing newline", "site1\nsite2", []string{"site1", "site2"}, ""},
		{"empty", "", nil, "list is empty"},
		{"only blanks", "\n  \n", nil, "list is empty"},
		{"duplicate", "a\nb\na\n", nil, `duplicate identifier "a" (entries 1 and 3)`},
	}
	for _, subTest := range subTests {
		t.Run(subTest.name, func(t *testing.T) {
			values, err := ReadList(strings.NewReader(subTest.input), SetSolarSites)
			if subTest.expectedErr != "" {
				var setErr *SetLoadError
				require.ErrorAs(t, err, &setErr)
				assert.Equal(t, SetSolarSites, setErr.Set)
				assert.Contains(t, err.Error(), subTest.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, subTest.expected, values)
		})
	}
}

func TestLoadListMissingFile(t *testing.T) {
	_, err := LoadList(filepath.Join(t.TempDir(), "nope.txt"), SetWindSites)

	var setErr *SetLoadError
	require.ErrorAs(t, err, &setErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadListRecordsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wind.txt")
	require.NoError(t, os.WriteFile(path, []byte("w1\nw1\n"), 0o644))

	_, err := LoadList(path, SetWindSites)

	var setErr *SetLoadError
	require.ErrorAs(t, err, &setErr)
	assert.Equal(t, path, setErr.Path)
}

func TestNew(t *testing.T) {
	reg, err := New(HoursPerYear, []string{"k1", "k2"}, []string{"w1"}, props, DefaultStorageTechs)
	require.NoError(t, err)

	assert.Equal(t, HoursPerYear, reg.NumHours())
	assert.Equal(t, 1, reg.Hours()[0])
	assert.Equal(t, HoursPerYear, reg.Hours()[HoursPerYear-1])
	assert.Equal(t, []StorageTech{LiIon, PHS}, reg.Coupled())
	assert.True(t, reg.IsCoupled(PHS))
	assert.False(t, reg.IsCoupled(H2))
	assert.True(t, reg.HasTech(CAES))
}

func TestNewRejects(t *testing.T) {

	type subTest struct {
		name  string
		hours int
		solar []string
		wind  []string
		props []string
		techs []StorageTech
		set   string
	}

	subTests := []subTest{
		{"no hours", 0, []string{"k"}, []string{"w"}, props, DefaultStorageTechs, SetHours},
		{"no solar sites", 2, nil, []string{"w"}, props, DefaultStorageTechs, SetSolarSites},
		{"duplicate wind site", 2, []string{"k"}, []string{"w", "w"}, props, DefaultStorageTechs, SetWindSites},
		{"missing property", 2, []string{"k"}, []string{"w"}, []string{"capacity"}, DefaultStorageTechs, SetProperties},
		{"unknown tech", 2, []string{"k"}, []string{"w"}, props, []StorageTech{"Flywheel"}, SetStorageTechs},
		{"tech names are case sensitive", 2, []string{"k"}, []string{"w"}, props, []StorageTech{"li-ion"}, SetStorageTechs},
		{"duplicate tech", 2, []string{"k"}, []string{"w"}, props, []StorageTech{H2, H2}, SetStorageTechs},
		{"no techs", 2, []string{"k"}, []string{"w"}, props, nil, SetStorageTechs},
	}
	for _, subTest := range subTests {
		t.Run(subTest.name, func(t *testing.T) {
			_, err := New(subTest.hours, subTest.solar, subTest.wind, subTest.props, subTest.techs)
			var setErr *SetLoadError
			require.ErrorAs(t, err, &setErr)
			assert.Equal(t, subTest.set, setErr.Set)
		})
	}
}

func TestPredIsCyclic(t *testing.T) {
	reg, err := New(HoursPerYear, []string{"k"}, []string{"w"}, props, DefaultStorageTechs)
	require.NoError(t, err)

	assert.Equal(t, HoursPerYear, reg.Pred(1))
	assert.Equal(t, 1, reg.Pred(2))
	assert.Equal(t, HoursPerYear-1, reg.Pred(HoursPerYear))
}

func TestNewCoupledSubset(t *testing.T) {
	reg, err := New(2, []string{"k"}, []string{"w"}, props, []StorageTech{CAES, H2})
	require.NoError(t, err)

	assert.Empty(t, reg.Coupled())
	assert.False(t, reg.HasTech(LiIon))
}
