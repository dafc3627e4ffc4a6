package eveconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetStringFallsBackToDefault(t *testing.T) {
	ec := NewEnvConfig("DATA", "TESTBACKEND")
	assert.Equal(t, "fallback", ec.GetString("MISSING", "fallback"))
}

func TestGetStringReadsSetVariable(t *testing.T) {
	t.Setenv("RALPH_BACKENDS__DATA__TESTBACKEND__HOST", "example.com")
	ec := NewEnvConfig("DATA", "TESTBACKEND")
	assert.Equal(t, "example.com", ec.GetString("HOST", "localhost"))
}

func TestGetIntParsesOrFallsBack(t *testing.T) {
	t.Setenv("RALPH_BACKENDS__DATA__TESTBACKEND__PORT", "9200")
	ec := NewEnvConfig("DATA", "TESTBACKEND")
	assert.Equal(t, 9200, ec.GetInt("PORT", 80))
	assert.Equal(t, 80, ec.GetInt("MISSING", 80))
}

func TestGetBoolParsesOrFallsBack(t *testing.T) {
	t.Setenv("RALPH_BACKENDS__DATA__TESTBACKEND__FLAG", "true")
	ec := NewEnvConfig("DATA", "TESTBACKEND")
	assert.True(t, ec.GetBool("FLAG", false))
	assert.False(t, ec.GetBool("MISSING", false))
}

func TestGetDurationParsesOrFallsBack(t *testing.T) {
	t.Setenv("RALPH_BACKENDS__DATA__TESTBACKEND__TIMEOUT", "5s")
	ec := NewEnvConfig("DATA", "TESTBACKEND")
	assert.Equal(t, 5*time.Second, ec.GetDuration("TIMEOUT", time.Second))
}

func TestGetStringSliceSplitsAndTrims(t *testing.T) {
	t.Setenv("RALPH_BACKENDS__DATA__TESTBACKEND__HOSTS", "a, b ,c")
	ec := NewEnvConfig("DATA", "TESTBACKEND")
	assert.Equal(t, []string{"a", "b", "c"}, ec.GetStringSlice("HOSTS", nil))
}

func TestMustGetStringPanicsWhenUnset(t *testing.T) {
	ec := NewEnvConfig("DATA", "TESTBACKEND")
	assert.Panics(t, func() { ec.MustGetString("REQUIRED") })
}
