package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"grades.csv", FormatCSV, false},
		{"GRADES.CSV", FormatCSV, false},
		{"mapping.xlsx", FormatXLSX, false},
		{"mapping.xls", "", true},
		{"notes.txt", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFromFilename(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeader(t *testing.T) {
	h := NewHeader([]string{" Job  Role ", "GRADE", "", "Grade"})

	assert.True(t, h.Has(ColumnJobRole))
	assert.True(t, h.Has(ColumnGrade))
	idx, ok := h.Index("grade")
	require.True(t, ok)
	assert.Equal(t, 1, idx, "first duplicate heading wins")
	assert.Equal(t, []string{ColumnSBU}, h.Missing(ColumnSBU, ColumnGrade))
}

func TestReadTable(t *testing.T) {
	t.Run("required columns present", func(t *testing.T) {
		table, err := ReadTable(strings.NewReader("Job Role,Grade\nAnalyst,MT5\nManager,MT6 - MT7\n"), FormatCSV, ColumnJobRole, ColumnGrade)
		require.NoError(t, err)
		assert.Equal(t, []string{"MT5", "MT6 - MT7"}, table.Column(ColumnGrade))
	})

	t.Run("missing column rejects upload", func(t *testing.T) {
		_, err := ReadTable(strings.NewReader("Job Role\nAnalyst\n"), FormatCSV, ColumnJobRole, ColumnGrade)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingColumns)
		assert.Contains(t, err.Error(), "Grade")
		assert.Equal(t, ErrCodeImportMissingColumns, ErrorCode(err))
	})

	t.Run("header only file has no rows", func(t *testing.T) {
		table, err := ReadTable(strings.NewReader("SBU\n"), FormatCSV, ColumnSBU)
		require.NoError(t, err)
		assert.Empty(t, table.Rows)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := ReadTable(strings.NewReader("SBU\n"), Format("ods"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}
