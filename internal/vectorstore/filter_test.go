package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilters(t *testing.T) {
	assert.Equal(t, map[string]string{MetaUserName: "Sophia Al-Farsi"}, UserFilter("Sophia Al-Farsi"))
	assert.Equal(t, map[string]string{MetaDomain: DomainMessage}, DomainFilter())
}

func TestValidateFilter(t *testing.T) {
	assert.NoError(t, ValidateFilter(nil))
	assert.NoError(t, ValidateFilter(map[string]string{}))
	assert.NoError(t, ValidateFilter(UserFilter("A")))
	assert.ErrorIs(t, ValidateFilter(map[string]string{"": "x"}), ErrInvalidFilter)
	assert.ErrorIs(t, ValidateFilter(map[string]string{MetaUserName: ""}), ErrInvalidFilter)
}

func TestValidateEntries(t *testing.T) {
	ok := []Entry{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{0, 1}},
	}
	assert.NoError(t, validateEntries(ok, 2))
	assert.NoError(t, validateEntries(ok, 0), "dimension taken from the first entry")

	assert.ErrorIs(t, validateEntries(nil, 2), ErrEmptyEntries)
	assert.ErrorIs(t, validateEntries(ok, 3), ErrInvalidEntry)

	mixed := []Entry{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{0, 1, 0}},
	}
	assert.ErrorIs(t, validateEntries(mixed, 0), ErrInvalidEntry)
	assert.ErrorIs(t, validateEntries([]Entry{{ID: "x"}}, 0), ErrInvalidEntry)
}

func TestCopyMetadata(t *testing.T) {
	src := map[string]string{MetaUserName: "A"}
	dst := copyMetadata(src)
	dst[MetaUserName] = "B"
	assert.Equal(t, "A", src[MetaUserName])
	assert.NotNil(t, copyMetadata(nil))
}
