package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_RoundTrip(t *testing.T) {
	original := sampleDataset()

	raw, err := NewExport(original, fixedNow).Encode()
	require.NoError(t, err)

	imp, err := ParseImport(raw)
	require.NoError(t, err)
	assert.ElementsMatch(t, Collections, imp.Collections())

	var restored Dataset
	imp.ApplyTo(&restored)
	assert.Equal(t, original, restored)
}

func TestExport_FileName(t *testing.T) {
	e := NewExport(Dataset{}, fixedNow)
	assert.Equal(t, "our_chronicles_backup_2025-01-19.json", e.FileName())
}

func TestImport_LeavesAbsentCollectionsUntouched(t *testing.T) {
	current := sampleDataset()

	imp, err := ParseImport([]byte(`{
		"todos": [{"id":"9","text":"из файла","completed":true}],
		"flowers": [],
		"memories": null,
		"exportDate": "2024-05-01T00:00:00.000Z"
	}`))
	require.NoError(t, err)

	replaced := imp.ApplyTo(&current)

	assert.Equal(t, []Collection{CollectionFlowers, CollectionTodos}, replaced)
	assert.Equal(t, []Todo{{ID: "9", Text: "из файла", Completed: true}}, current.Todos)
	assert.Empty(t, current.Flowers)
	assert.Equal(t, sampleDataset().Memories, current.Memories)
	assert.Equal(t, sampleDataset().Cities, current.Cities)
}

func TestParseImport_Errors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "garbage", raw: `not json`, wantErr: ErrMalformed},
		{name: "no collections", raw: `{"exportDate":"2024-01-01"}`, wantErr: ErrMalformed},
		{name: "invalid record", raw: `{"dates":[{"id":"1","title":""}]}`, wantErr: ErrInvalidRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseImport([]byte(tt.raw))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
