package provisioning

import (
	"context"
	"time"
)

// LicenseSheet datos impresos en la hoja de licencia que se entrega al dueño del outlet.
type LicenseSheet struct {
	OutletName string
	OwnerName  string
	OwnerEmail string
	OwnerPhone string
	Address    string
	City       string
	State      string
	ChainName  string
	PlanName   string
	LicenseKey string
	KeyType    string
	IssuedAt   time.Time
}

// LicenseSheetRenderer puerto de salida para generar el PDF de la licencia (implementa: infrastructure/pdf).
type LicenseSheetRenderer interface {
	RenderLicenseSheet(ctx context.Context, sheet LicenseSheet) ([]byte, error)
}
