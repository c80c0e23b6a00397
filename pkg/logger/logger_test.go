package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONConComponente(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "debug", Output: &buf})

	c := l.Component("identity")
	c.Info().Str("flow", "register").Msg("paso completado")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "identity", line["component"])
	assert.Equal(t, "register", line["flow"])
	assert.Equal(t, "info", line["level"])
}

func TestNew_NivelInvalidoUsaInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "ruidoso", Output: &buf})

	l.Debug().Msg("no debe salir")
	assert.Empty(t, buf.String())

	l.Info().Msg("sí")
	assert.Contains(t, buf.String(), "sí")
}
