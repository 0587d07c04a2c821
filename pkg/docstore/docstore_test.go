package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripSystemFields(t *testing.T) {
	doc := map[string]any{
		"id":           "A",
		"_rid":         "xyz",
		"_self":        "foo",
		"_etag":        `"0000-00"`,
		"_attachments": "attachments/",
		"_ts":          1700000000,
		"name":         "widget",
	}
	stripped := StripSystemFields(doc)
	assert.Equal(t, map[string]any{"id": "A", "name": "widget"}, stripped)
	// original untouched
	assert.Contains(t, doc, "_rid")
}
