package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kds-identity-api/internal/application/provisioning"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

func TestRenderLicenseSheet(t *testing.T) {
	sheet := provisioning.LicenseSheet{
		OutletName: "Café Central",
		OwnerName:  "José Pérez",
		OwnerEmail: "jose@example.com",
		City:       "Medellín",
		PlanName:   "Mensual",
		LicenseKey: "8f14e45f-ceea-467f-a0f6-0c1d2e3f4a5b",
		KeyType:    entity.KeyTypeLicense,
		IssuedAt:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}

	out, err := NewLicenseSheetGenerator().RenderLicenseSheet(context.Background(), sheet)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "el resultado debe ser un PDF")
}

func TestRenderLicenseSheet_EmptyKey(t *testing.T) {
	_, err := NewLicenseSheetGenerator().RenderLicenseSheet(context.Background(), provisioning.LicenseSheet{OutletName: "X"})
	assert.Error(t, err)
}

func TestKeyTypeLabel(t *testing.T) {
	assert.Equal(t, "LICENCIA MAESTRA", keyTypeLabel(entity.KeyTypeMaster))
	assert.Equal(t, "LICENCIA DE SUCURSAL", keyTypeLabel(entity.KeyTypeBranch))
	assert.Equal(t, "LICENCIA DE OUTLET", keyTypeLabel(entity.KeyTypeLicense))
}
