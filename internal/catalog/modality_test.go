package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitModalities_Empty(t *testing.T) {
	assert.Empty(t, SplitModalities(""))
	assert.Empty(t, SplitModalities(" ; , "))
}

func TestSplitModalities_Semicolons(t *testing.T) {
	assert.Equal(t, []string{"EEG", "fMRI"}, SplitModalities("EEG;fMRI"))
}

func TestSplitModalities_CommasAndSpaces(t *testing.T) {
	assert.Equal(t, []string{"Calcium Imaging", "Behavioral"},
		SplitModalities(" Calcium Imaging , Behavioral "))
}

func TestSplitModalities_MixedDelimiters(t *testing.T) {
	assert.Equal(t, []string{"EEG", "ECG", "Survey"}, SplitModalities("EEG;ECG,Survey"))
}

func TestSplitModalities_PreservesDuplicatesAndOrder(t *testing.T) {
	// De-duplication is the caller's responsibility.
	assert.Equal(t, []string{"EEG", "eeg", "EEG"}, SplitModalities("EEG;eeg;EEG"))
}

func TestModalityKey(t *testing.T) {
	assert.Equal(t, "eeg", ModalityKey(" EEG "))
	assert.Equal(t, "fmri", ModalityKey("fMRI"))
	assert.Equal(t, "calcium imaging", ModalityKey("Calcium Imaging"))
}

func TestFormatModality_PreservesAcronyms(t *testing.T) {
	assert.Equal(t, "EEG", FormatModality("EEG"))
	assert.Equal(t, "fMRI", FormatModality("fMRI"))
	assert.Equal(t, "iEEG", FormatModality("iEEG"))
	assert.Equal(t, "X-Ray CT", FormatModality("X-Ray CT"))
}

func TestFormatModality_LowercasesPlainWords(t *testing.T) {
	assert.Equal(t, "behavioral", FormatModality("Behavioral"))
	assert.Equal(t, "survey", FormatModality(" Survey "))
	// Single interior capitals don't count as acronyms; accepted behavior.
	assert.Equal(t, "xray", FormatModality("xRay"))
}

func TestFormatModality_Idempotent(t *testing.T) {
	for _, tok := range []string{"EEG", "fMRI", "iEEG", "Behavioral", "xRay", "Calcium Imaging", ""} {
		once := FormatModality(tok)
		assert.Equal(t, once, FormatModality(once), "format of %q must be idempotent", tok)
	}
}

func TestFormatModality_KeyAgreesAfterFormatting(t *testing.T) {
	for _, tok := range []string{"EEG", "fMRI", "Behavioral", " Survey ", "Calcium Imaging"} {
		assert.Equal(t, ModalityKey(tok), ModalityKey(FormatModality(tok)))
	}
}
