package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineErrorMessage(t *testing.T) {
	err := NewMalformedPrice("$abc", stderrors.New("can't convert abc to decimal"))
	assert.Equal(t, `[malformed_price] normalize: price is not numeric (value "$abc") - can't convert abc to decimal`, err.Error())

	err = NewEmptyDataset("stats")
	assert.Equal(t, "[empty_dataset] stats: no data to analyze", err.Error())
}

func TestIsType(t *testing.T) {
	inner := NewFetch("https://example.com", "timeout", stderrors.New("deadline exceeded"))
	wrapped := fmt.Errorf("scrape failed: %w", inner)

	assert.True(t, IsType(wrapped, ErrorTypeFetch))
	assert.False(t, IsType(wrapped, ErrorTypeStorage))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeFetch))
	assert.ErrorIs(t, wrapped, inner.Err)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, NewFetch("u", "m", nil).IsFatal())
	assert.True(t, NewStorage("p", "m", nil).IsFatal())
	assert.True(t, NewConfiguration("m", nil).IsFatal())
	assert.False(t, NewBlobParse("VGPC.product", nil).IsFatal())
	assert.False(t, NewExtraction("extract", "m", nil).IsFatal())
	assert.False(t, NewMalformedDate("", "empty date").IsFatal())
}
