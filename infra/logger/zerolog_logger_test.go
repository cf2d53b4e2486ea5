package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer assert.NoError(t, os.Unsetenv("APP_ENV"))
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestWithAddsField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("runner", &buf).With("group", "2021-7-CARDIO")
	l.Infof("scored %d", 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "runner", entry["component"])
	assert.Equal(t, "2021-7-CARDIO", entry["group"])
	assert.Equal(t, "scored 1", entry["message"])
}

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	require.NoError(t, SetLevel("warn"))
	var buf bytes.Buffer
	l := NewWithWriter("test", &buf)
	l.Infof("hidden")
	assert.Zero(t, buf.Len())
	l.Warnf("shown")
	assert.NotZero(t, buf.Len())

	assert.NoError(t, SetLevel(""))
	assert.Error(t, SetLevel("loud"))
}
