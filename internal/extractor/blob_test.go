package extractor

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricetracker/internal/models"
	apperrors "sjsage522/pricetracker/pkg/errors"
)

func TestCleanup(t *testing.T) {
	cleaned := Cleanup(`foo: 'bar', baz: [1,2,],`)
	assert.Equal(t, `"foo": "bar", "baz": [1,2]`, cleaned)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte("{"+cleaned+"}"), &out))
	assert.Equal(t, "bar", out["foo"])
	assert.Equal(t, []any{float64(1), float64(2)}, out["baz"])
}

func TestCleanupPatterns(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "nested objects",
			input:    `{used: [[1, 2]], nested: {a: 1, b_2: 'x',},}`,
			expected: `{"used": [[1, 2]], "nested": {"a": 1, "b_2": "x"}}`,
		},
		{
			name:     "already quoted keys are left alone",
			input:    `{"id": 5, name: 'box'}`,
			expected: `{"id": 5, "name": "box"}`,
		},
		{
			name:     "url values keep their scheme",
			input:    `{link: 'https://example.com/a'}`,
			expected: `{"link": "https://example.com/a"}`,
		},
		{
			name:     "whitespace before colon",
			input:    "{\n  $key  : true,\n}",
			expected: "{\n  \"$key\": true}",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Cleanup(tc.input))
		})
	}
}

const historyPage = `<html><head>
<script>var unrelated = {a: 1};</script>
<script type="text/javascript">
	VGPC.chart_data = {
		used: [[1704067200000, 23000], [1706745600000, 21050]],
		new: [[1704067200000, 30000],],
		boxonly: [],
	};
	VGPC.volume_data = {volume: [[1704067200000, 12], [1706745600000, 7]]};
	VGPC.product = {id: 4242, name: 'Silver Tempest Booster Box', consoleName: 'Pokemon Silver Tempest',};
</script>
</head><body></body></html>`

type recordingSink struct {
	blobs map[string][2]string
}

func (s *recordingSink) WriteDiagnostic(blob, original, processed string) error {
	if s.blobs == nil {
		s.blobs = map[string][2]string{}
	}
	s.blobs[blob] = [2]string{original, processed}
	return nil
}

func TestFindBlob(t *testing.T) {
	raw, ok := FindBlob(historyPage, BlobVolumeData)
	require.True(t, ok)
	assert.Equal(t, `{volume: [[1704067200000, 12], [1706745600000, 7]]}`, raw)

	_, ok = FindBlob(historyPage, "VGPC.missing")
	assert.False(t, ok)

	// plain script text without any markup
	raw, ok = FindBlob(`VGPC.product = {id: 1};`, BlobProduct)
	require.True(t, ok)
	assert.Equal(t, `{id: 1}`, raw)
}

func TestHistoryExtractor_Extract(t *testing.T) {
	sink := &recordingSink{}
	history, errs := NewHistoryExtractor(sink).Extract(historyPage)
	assert.Empty(t, errs)
	assert.Empty(t, sink.blobs)

	want := models.ChartSeries{
		"used": {{Timestamp: 1704067200000, Price: 23000}, {Timestamp: 1706745600000, Price: 21050}},
		"new":  {{Timestamp: 1704067200000, Price: 30000}},
	}
	if diff := cmp.Diff(want, history.Chart); diff != "" {
		t.Errorf("chart series mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []models.VolumeEntry{
		{Timestamp: 1704067200000, Volume: 12},
		{Timestamp: 1706745600000, Volume: 7},
	}, history.Volume)

	assert.Equal(t, "Silver Tempest Booster Box", history.Product["name"])
	assert.Equal(t, float64(4242), history.Product["id"])
}

func TestHistoryExtractor_BrokenBlobDoesNotAbortSiblings(t *testing.T) {
	page := `<script>
		VGPC.chart_data = {used: [[1704067200000, 23000]]};
		VGPC.volume_data = {volume: [[1704067200000, 3]]};
		VGPC.product = {name: 'Broken', tags: [1, 2 };
	</script>`

	sink := &recordingSink{}
	history, errs := NewHistoryExtractor(sink).Extract(page)

	require.Len(t, errs, 1)
	assert.True(t, apperrors.IsType(errs[0], apperrors.ErrorTypeBlobParse))
	assert.Contains(t, errs[0].Error(), BlobProduct)

	assert.Len(t, history.Chart["used"], 1)
	assert.Len(t, history.Volume, 1)
	assert.Empty(t, history.Product)

	require.Contains(t, sink.blobs, BlobProduct)
	assert.Equal(t, `{name: 'Broken', tags: [1, 2 }`, sink.blobs[BlobProduct][0])
	assert.Equal(t, `{"name": "Broken", "tags": [1, 2 }`, sink.blobs[BlobProduct][1])
}

func TestHistoryExtractor_MissingBlobs(t *testing.T) {
	history, errs := NewHistoryExtractor(nil).Extract(`<html><body>nothing here</body></html>`)
	assert.Len(t, errs, 3)
	for _, err := range errs {
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExtraction))
	}
	assert.Empty(t, history.Chart)
	assert.Empty(t, history.Volume)
}

func TestParseBlob_TolerantFallback(t *testing.T) {
	// the apostrophe inside a double-quoted string breaks the quote swap
	raw := `{name: "Collector's Box", url: 'https://example.com/a',}`

	value, cleaned, err := ParseBlob(BlobProduct, raw)
	require.NoError(t, err)
	assert.Contains(t, cleaned, `Collector"s`)

	obj := value.(map[string]any)
	assert.Equal(t, "Collector's Box", obj["name"])
	assert.Equal(t, "https://example.com/a", obj["url"])
}

func TestParseBlob_Failure(t *testing.T) {
	_, cleaned, err := ParseBlob(BlobChartData, `{used: [[1, 2], }`)
	assert.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeBlobParse))
	assert.Equal(t, `{"used": [[1, 2]}`, cleaned)
}
