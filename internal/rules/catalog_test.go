package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/brain/internal/types"
)

func TestCatalogOrderAndSeverity(t *testing.T) {
	got := Catalog()
	require.Len(t, got, 5)

	want := []struct {
		name     string
		severity types.Severity
	}{
		{PhaseOrder, types.SeverityCritical},
		{ApprovalGate, types.SeverityCritical},
		{ArtifactRequired, types.SeverityHigh},
		{ReportRequired, types.SeverityMedium},
		{ScopeCreep, types.SeverityHigh},
	}
	for i, w := range want {
		assert.Equal(t, w.name, got[i].Name)
		assert.Equal(t, w.severity, got[i].Severity)
		assert.NotEmpty(t, got[i].Description)
	}
}

func TestCatalogReturnsCopy(t *testing.T) {
	c := Catalog()
	c[0].Severity = types.SeverityMedium

	r, ok := Lookup(PhaseOrder)
	require.True(t, ok)
	assert.Equal(t, types.SeverityCritical, r.Severity)
}

func TestLookup(t *testing.T) {
	r, ok := Lookup(ScopeCreep)
	require.True(t, ok)
	assert.Equal(t, "No features outside approved plan", r.Description)

	r, ok = Lookup(ManualHalt)
	require.True(t, ok)
	assert.Equal(t, types.SeverityCritical, r.Severity)

	_, ok = Lookup("NOT_A_RULE")
	assert.False(t, ok)
	assert.False(t, IsKnown("NOT_A_RULE"))
	assert.True(t, IsKnown(ApprovalGate))
}
