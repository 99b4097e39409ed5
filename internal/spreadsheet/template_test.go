package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplateRoundTrip(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)

	rows, err := Decode("template.xlsx", data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, map[string]any{
		"name":     "Jane Doe",
		"position": "Software Engineer",
		"level":    "Junior",
	}, rows[0].Cells)
}
