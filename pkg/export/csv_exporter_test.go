package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Claim ID", "Status", "Amount"},
		Rows: []map[string]string{
			{"Claim ID": "claim-1", "Status": "SUBMITTED", "Amount": "250.00"},
			{"Claim ID": "claim-2", "Status": "APPROVED", "Amount": "99.50"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Claim ID,Status,Amount", lines[0])
	assert.Equal(t, "claim-1,SUBMITTED,250.00", lines[1])
	assert.Equal(t, "claim-2,APPROVED,99.50", lines[2])
}

func TestCSVRenderMissingColumnLeftEmpty(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Claim ID", "Status"},
		Rows:    []map[string]string{{"Claim ID": "claim-1"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(payload), "claim-1,")
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFRenderProducesDocument(t *testing.T) {
	exporter := NewPDFExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Claim ID", "Status"},
		Rows:    []map[string]string{{"Claim ID": "claim-1", "Status": "SUBMITTED"}},
	}, "Claim Register")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}
