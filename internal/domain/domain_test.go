package domain_test

import (
	"testing"

	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Enum Tests
// =============================================================================

func TestValueType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		valueType domain.ValueType
		expected  bool
	}{
		{"text is valid", domain.ValueTypeText, true},
		{"number is valid", domain.ValueTypeNumber, true},
		{"date is valid", domain.ValueTypeDate, true},
		{"address is valid", domain.ValueTypeAddress, true},
		{"empty is invalid", domain.ValueType(""), false},
		{"currency is invalid", domain.ValueType("currency"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.valueType.IsValid())
		})
	}
}

func TestValidationStatus_IsValid(t *testing.T) {
	assert.True(t, domain.ValidationStatusPending.IsValid())
	assert.True(t, domain.ValidationStatusApproved.IsValid())
	assert.False(t, domain.ValidationStatus("rejected").IsValid())
}

func TestVersionSource_IsValid(t *testing.T) {
	assert.True(t, domain.VersionSourceAI.IsValid())
	assert.True(t, domain.VersionSourceUpload.IsValid())
	assert.True(t, domain.VersionSourceManual.IsValid())
	assert.False(t, domain.VersionSource("import").IsValid())
}

// =============================================================================
// Value Tests
// =============================================================================

func TestParseValue_Number(t *testing.T) {
	tests := []struct {
		raw      string
		expected float64
	}{
		{"1234.5", 1234.5},
		{"1.234,50", 1234.5},
		{"€ 250.000,00", 250000},
		{"  42 ", 42},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := domain.ParseValue(domain.ValueTypeNumber, tt.raw)
			require.NoError(t, err)
			require.NotNil(t, v.Number)
			assert.Equal(t, tt.expected, *v.Number)
			assert.Equal(t, tt.raw, v.Raw)
		})
	}
}

func TestParseValue_InvalidNumber(t *testing.T) {
	for _, raw := range []string{"twee ton", "NaN", "nan", "Inf", "-Inf", "+infinity", "1e999"} {
		t.Run(raw, func(t *testing.T) {
			_, err := domain.ParseValue(domain.ValueTypeNumber, raw)
			assert.Error(t, err)
		})
	}
}

func TestParseValue_Date(t *testing.T) {
	for _, raw := range []string{"2024-03-01", "01-03-2024", "01/03/2024", "1-3-2024", "01.03.2024"} {
		t.Run(raw, func(t *testing.T) {
			v, err := domain.ParseValue(domain.ValueTypeDate, raw)
			require.NoError(t, err)
			require.NotNil(t, v.Date)
			assert.Equal(t, "01-03-2024", v.Format())
		})
	}
}

func TestParseValue_InvalidDate(t *testing.T) {
	_, err := domain.ParseValue(domain.ValueTypeDate, "volgende week")
	assert.Error(t, err)
}

func TestParseValue_EmptyIsAlwaysValid(t *testing.T) {
	for _, vt := range []domain.ValueType{domain.ValueTypeNumber, domain.ValueTypeDate, domain.ValueTypeText} {
		v, err := domain.ParseValue(vt, "  ")
		require.NoError(t, err)
		assert.True(t, v.IsEmpty())
	}
}

func TestParseValue_UnknownTypeIsText(t *testing.T) {
	v, err := domain.ParseValue(domain.ValueType("legacy"), " vrije tekst ")
	require.NoError(t, err)
	assert.Equal(t, domain.ValueTypeText, v.Type)
	assert.Equal(t, "vrije tekst", v.Format())
}

func TestTypedValue_FormatNumber(t *testing.T) {
	v, err := domain.ParseValue(domain.ValueTypeNumber, "1.500,00")
	require.NoError(t, err)
	assert.Equal(t, "1500", v.Format())
}

// =============================================================================
// Version Number Tests
// =============================================================================

func TestFormatVersionNumber(t *testing.T) {
	assert.Equal(t, "1.0", domain.FormatVersionNumber(1, 0))
	assert.Equal(t, "2.12", domain.FormatVersionNumber(2, 12))
}

func TestParseVersionNumber(t *testing.T) {
	major, minor, err := domain.ParseVersionNumber("3.7")
	require.NoError(t, err)
	assert.Equal(t, 3, major)
	assert.Equal(t, 7, minor)

	for _, label := range []string{"Concept", "1", "1.2.3", "a.1", "1.-1"} {
		_, _, err := domain.ParseVersionNumber(label)
		assert.Error(t, err, label)
	}
}

func TestVersion_IsRenamed(t *testing.T) {
	v := &domain.Version{Major: 2, Minor: 1, VersionNumber: "2.1"}
	assert.False(t, v.IsRenamed())

	v.VersionNumber = "Definitief"
	assert.True(t, v.IsRenamed())

	// A numeric label that points at another lineage is still a rename
	v.VersionNumber = "2.4"
	assert.True(t, v.IsRenamed())
}

// =============================================================================
// Marker Tests
// =============================================================================

func TestExtractMarkerKeys(t *testing.T) {
	content := "Koper [[naam_koper]] koopt [[ adres_eigendom ]] van [[naam_verkoper]] voor [[koopsom]]. Getekend door [[naam_koper]]."
	keys := domain.ExtractMarkerKeys(content)
	assert.Equal(t, []string{"naam_koper", "adres_eigendom", "naam_verkoper", "koopsom"}, keys)
}

func TestExtractMarkerKeys_NoMarkers(t *testing.T) {
	assert.Empty(t, domain.ExtractMarkerKeys("Geen velden [hier] of [[ ]]"))
}

func TestRenderContent(t *testing.T) {
	content := "Koopsom: [[koopsom]], leveringsdatum: [[leveringsdatum]], notaris: [[notaris]]"
	values := map[string]string{
		"koopsom":        "€ 350.000",
		"leveringsdatum": " ",
	}

	rendered := domain.RenderContent(content, values)
	assert.Equal(t, "Koopsom: € 350.000, leveringsdatum: [[leveringsdatum]], notaris: [[notaris]]", rendered)
}

func TestSectionInstance_Values(t *testing.T) {
	section := &domain.SectionInstance{
		Placeholders: []domain.PlaceholderInstance{
			{Value: "Jansen", PlaceholderDefinition: &domain.PlaceholderDefinition{Key: "naam_koper"}},
			{Value: "", PlaceholderDefinition: &domain.PlaceholderDefinition{Key: "koopsom"}},
			{Value: "orphan"},
		},
	}

	values := section.Values(map[string]string{"naam_koper": "De Vries", "koopsom": "100000", "notaris": "Bakker"})
	assert.Equal(t, "Jansen", values["naam_koper"])
	assert.Equal(t, "100000", values["koopsom"])
	assert.Equal(t, "Bakker", values["notaris"])
	assert.Len(t, values, 3)
}

func TestIsAddressField(t *testing.T) {
	assert.True(t, domain.IsAddressField("adres_eigendom"))
	assert.False(t, domain.IsAddressField("naam_koper"))
}
