package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`  {"a":1}  `))
}

func TestRepairJSON_MissingOpeningQuote(t *testing.T) {
	broken := `{"summary": "x", decisions": []}`
	repaired := RepairJSON(broken)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
	assert.Contains(t, out, "decisions")
}

func TestRepairJSON_ValidInputUnchanged(t *testing.T) {
	valid := `{"summary": "quarterly sync", "decisions": ["ship it"]}`
	assert.Equal(t, valid, RepairJSON(valid))
}
