package organization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeExpander_Expand(t *testing.T) {
	expander := NewGradeExpander(DefaultGradeCeiling)

	tests := []struct {
		name     string
		notation string
		expected []string
	}{
		{"bounded range", "MT5 - MT9", []string{"MT5", "MT6", "MT7", "MT8", "MT9"}},
		{"bounded range without spaces", "MT5-MT7", []string{"MT5", "MT6", "MT7"}},
		{"bounded range with extra spaces", "  MT1   -   MT2 ", []string{"MT1", "MT2"}},
		{"single element range", "MT4 - MT4", []string{"MT4"}},
		{"open ended", "MT15 & Above", []string{"MT15", "MT16", "MT17", "MT18"}},
		{"open ended with extra spaces", "MT17  &   Above", []string{"MT17", "MT18"}},
		{"open ended at ceiling", "MT19 & Above", []string{}},
		{"not applicable", "Not Applicable", []string{}},
		{"excluded band", "M9 & Above", []string{}},
		{"excluded band embedded", "Senior M9 & Above only", []string{}},
		{"blank", "   ", []string{}},
		{"reversed range", "MT9 - MT5", []string{}},
		{"range ending past the ceiling", "MT15 - MT20", []string{"MT15", "MT16", "MT17", "MT18", "MT19", "MT20"}},
		{"range entirely past the ceiling", "MT21 - MT22", []string{"MT21", "MT22"}},
		{"range starting at zero", "MT0 - MT2", []string{"MT0", "MT1", "MT2"}},
		{"bare code", "MT7", []string{"MT7"}},
		{"literal grade", "Executive", []string{"Executive"}},
		{"literal with dash but no MT", "A - B", []string{"A - B"}},
		{"literal trimmed", " Director ", []string{"Director"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expander.Expand(tt.notation)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expected, got)
		})
	}
}

func TestGradeExpander_Expand_Malformed(t *testing.T) {
	expander := NewGradeExpander(DefaultGradeCeiling)

	tests := []struct {
		name     string
		notation string
	}{
		{"non numeric end", "MT5 - MTX"},
		{"non numeric start", "MTa - MT9"},
		{"missing end number", "MT5 - MT"},
		{"three bounds", "MT1 - MT2 - MT3"},
		{"open ended non numeric", "MTx & Above"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expander.Expand(tt.notation)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, IsGradeParseError(err))

			var gpe *GradeParseError
			require.ErrorAs(t, err, &gpe)
			assert.Equal(t, tt.notation, gpe.Notation)
		})
	}
}

func TestGradeExpander_IdentityForAtomicGrades(t *testing.T) {
	expander := NewGradeExpander(DefaultGradeCeiling)

	for _, g := range []string{"MT1", "MT18", "MT99", "Band A", "Grade 3", "E&Above"} {
		got, err := expander.Expand(g)
		require.NoError(t, err)
		assert.Equal(t, []string{g}, got, "expand(%q)", g)
	}
}

func TestGradeExpander_Ceiling(t *testing.T) {
	t.Run("custom ceiling", func(t *testing.T) {
		expander := NewGradeExpander(22)
		got, err := expander.Expand("MT19 & Above")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"MT19", "MT20", "MT21"}, got)
	})

	t.Run("invalid ceiling falls back to default", func(t *testing.T) {
		assert.Equal(t, DefaultGradeCeiling, NewGradeExpander(0).Ceiling())
		assert.Equal(t, DefaultGradeCeiling, NewGradeExpander(1).Ceiling())
	})
}

func TestGradeExpander_Deterministic(t *testing.T) {
	expander := NewGradeExpander(DefaultGradeCeiling)

	first, err := expander.Expand("MT3 - MT8")
	require.NoError(t, err)
	second, err := expander.Expand("MT3 - MT8")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSortGrades(t *testing.T) {
	grades := []string{"MT10", "Band A", "MT2", "MT1", "Apprentice"}
	SortGrades(grades)
	assert.Equal(t, []string{"MT1", "MT2", "MT10", "Apprentice", "Band A"}, grades)
}
