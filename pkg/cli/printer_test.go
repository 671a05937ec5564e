package cli

import (
	"bytes"
	"testing"

	"gotest.tools/v3/assert"
)

func TestPrintProperties_SortedFields(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintProperties(map[string]any{
		"command": "start",
		"bot_id":  42,
	})

	assert.Equal(t, "  bot_id: 42\n  command: start\n", buf.String())
}

func TestParseProperties(t *testing.T) {
	properties, err := ParseProperties([]string{"command=start", "bot_id=42", "beta=true", "tags=[\"a\",\"b\"]", "note=a=b"})
	assert.NilError(t, err)

	assert.Equal(t, "start", properties["command"])
	assert.Equal(t, float64(42), properties["bot_id"])
	assert.Equal(t, true, properties["beta"])
	assert.DeepEqual(t, []any{"a", "b"}, properties["tags"])
	assert.Equal(t, "a=b", properties["note"])
}

func TestParseProperties_Invalid(t *testing.T) {
	_, err := ParseProperties([]string{"novalue"})
	assert.ErrorContains(t, err, "expected key=value")

	_, err = ParseProperties([]string{"=value"})
	assert.ErrorContains(t, err, "expected key=value")
}

func TestParseProperties_Empty(t *testing.T) {
	properties, err := ParseProperties(nil)
	assert.NilError(t, err)
	assert.Equal(t, 0, len(properties))
}

func TestPrintField_PlainForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintField("profile_set", true)

	assert.Equal(t, "  profile_set: true\n", buf.String())
}
