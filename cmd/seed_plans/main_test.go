package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func TestReadPlans_Latin1(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte("nombre;precio;duracion_dias;descripcion\nMensual;49900,50;30;Plan básico\nAnual;499000;365\n\n"))
	require.NoError(t, err)

	plans, err := readPlans(transform.NewReader(bytes.NewReader(raw), charmap.ISO8859_1.NewDecoder()))
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Mensual", plans[0].Name)
	assert.Equal(t, "49900.5", plans[0].Price.String())
	assert.Equal(t, "Plan básico", plans[0].Description)
	assert.Equal(t, 365, plans[1].DurationDays)
}

func TestReadPlans_BadRow(t *testing.T) {
	_, err := readPlans(bytes.NewReader([]byte("h\nMensual;abc;30\n")))
	assert.Error(t, err)
}
