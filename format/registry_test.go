package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFormatter struct {
	types []string
}

func (s stubFormatter) MediaTypes() []string { return s.types }
func (s stubFormatter) Format(obj any, mt string) ([]byte, error) {
	return []byte(mt), nil
}

func TestRegistry_SelectsMatchingFormatter(t *testing.T) {
	r := NewRegistry()
	r.SetDefault(JSONFormatter{})
	r.Register(stubFormatter{types: []string{"text/csv"}})

	// JSON was registered first (by SetDefault) and matches, so it wins even
	// though the client lists text/csv first.
	f, mt, err := r.Select("text/csv, application/json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", mt)
	_ = f
}

func TestRegistry_FallsBackToDefaultOnEmptyIntersection(t *testing.T) {
	r := NewRegistry()
	r.SetDefault(JSONFormatter{})

	f, mt, err := r.Select("text/csv")
	require.NoError(t, err)
	assert.Equal(t, "application/json", mt)
	assert.IsType(t, JSONFormatter{}, f)
}

func TestRegistry_NoDefaultIsFormatUnavailable(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.Select("application/json")
	require.Error(t, err)
}

func TestRegistry_SupersetRegistrationReplacesExisting(t *testing.T) {
	r := NewRegistry()
	narrow := stubFormatter{types: []string{"text/csv"}}
	wide := stubFormatter{types: []string{"text/csv", "text/tab-separated-values"}}

	r.Register(narrow)
	r.Register(wide)
	r.SetDefault(JSONFormatter{})

	f, _, err := r.Select("text/tab-separated-values")
	require.NoError(t, err)
	assert.Equal(t, wide, f)
}

func TestRegistry_WildcardAcceptMatchesFirstRegistered(t *testing.T) {
	r := NewRegistry()
	r.Register(stubFormatter{types: []string{"text/csv"}})
	r.SetDefault(JSONFormatter{})

	f, mt, err := r.Select("*/*")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", mt)
	_ = f
}
