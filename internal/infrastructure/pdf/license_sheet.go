// Package pdf genera la hoja de licencia que se entrega al dueño de un outlet.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Nombre del outlet      │  Tipo de licencia + fecha │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DUEÑO: Nombre / Email / Tel                                 │
//	│  UBICACIÓN: Dirección / Ciudad / Estado                      │
//	│  PLAN + CADENA                                               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  LICENCIA: clave en texto + QR                               │
//	│  Instrucciones de activación                                 │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/kds-identity-api/internal/application/provisioning"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var _ provisioning.LicenseSheetRenderer = (*LicenseSheetGenerator)(nil)

// LicenseSheetGenerator implementa provisioning.LicenseSheetRenderer usando Maroto v2.
type LicenseSheetGenerator struct{}

// NewLicenseSheetGenerator construye el generador.
func NewLicenseSheetGenerator() *LicenseSheetGenerator { return &LicenseSheetGenerator{} }

// RenderLicenseSheet genera el PDF y devuelve sus bytes.
func (g *LicenseSheetGenerator) RenderLicenseSheet(_ context.Context, sheet provisioning.LicenseSheet) ([]byte, error) {
	if sheet.LicenseKey == "" {
		return nil, fmt.Errorf("pdf: licencia vacía")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).WithRightMargin(15).
		WithTopMargin(15).WithBottomMargin(15).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 10}).
		WithTitle("Licencia "+sheet.OutletName, true).
		WithAuthor("KDS", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(sheet))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(ownerRow(sheet))
	m.AddRows(locationRow(sheet))
	m.AddRows(planRow(sheet))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	for _, r := range licenseRows(sheet) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(sheet provisioning.LicenseSheet) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(sheet.OutletName, props.Text{
				Style: fontstyle.Bold, Size: 14, Color: colorPrimary, Top: 1,
			}),
			text.New("Hoja de licencia", props.Text{Size: 9, Top: 10, Color: colorGray}),
		),
		col.New(5).Add(
			text.New(keyTypeLabel(sheet.KeyType), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Emitida: "+sheet.IssuedAt.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
		),
	)
}

func ownerRow(sheet provisioning.LicenseSheet) core.Row {
	return row.New(16).Add(
		col.New(12).Add(
			text.New("DUEÑO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2}),
			text.New(sheet.OwnerName, props.Text{Style: fontstyle.Bold, Size: 11, Top: 7}),
			text.New(fmt.Sprintf("Email: %s   |   Tel: %s",
				nonEmpty(sheet.OwnerEmail, "—"),
				nonEmpty(sheet.OwnerPhone, "—"),
			), props.Text{Size: 8, Top: 13, Color: colorGray}),
		),
	)
}

func locationRow(sheet provisioning.LicenseSheet) core.Row {
	parts := make([]string, 0, 3)
	for _, p := range []string{sheet.Address, sheet.City, sheet.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return row.New(12).Add(
		col.New(12).Add(
			text.New("UBICACIÓN", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2}),
			text.New(nonEmpty(strings.Join(parts, ", "), "—"), props.Text{Size: 9, Top: 7}),
		),
	)
}

func planRow(sheet provisioning.LicenseSheet) core.Row {
	return row.New(12).Add(
		col.New(6).Add(
			text.New("PLAN", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2}),
			text.New(nonEmpty(sheet.PlanName, "—"), props.Text{Size: 9, Top: 7}),
		),
		col.New(6).Add(
			text.New("CADENA", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2}),
			text.New(nonEmpty(sheet.ChainName, "Outlet independiente"), props.Text{Size: 9, Top: 7}),
		),
	)
}

// licenseRows: clave en texto + QR con la misma clave + instrucciones.
func licenseRows(sheet provisioning.LicenseSheet) []core.Row {
	return []core.Row{
		row.New(6),
		row.New(8).Add(col.New(12).Add(
			text.New("CLAVE DE LICENCIA", props.Text{Style: fontstyle.Bold, Size: 9, Color: colorPrimary, Top: 1}),
		)),
		row.New(10).Add(col.New(12).Add(
			text.New(sheet.LicenseKey, props.Text{Style: fontstyle.Bold, Size: 13, Top: 2, Family: "courier"}),
		)),
		row.New(55).Add(
			col.New(5).Add(code.NewQr(sheet.LicenseKey, props.Rect{Percent: 95, Center: true})),
			col.New(7).Add(
				text.New("Para activar la cuenta:", props.Text{Style: fontstyle.Bold, Size: 9, Top: 6, Left: 4}),
				text.New("1. Abra la aplicación KDS y elija \"Activar licencia\".", props.Text{Size: 9, Top: 14, Left: 4}),
				text.New("2. Escanee este código o escriba la clave.", props.Text{Size: 9, Top: 21, Left: 4}),
				text.New("3. Cree su contraseña con el email "+nonEmpty(sheet.OwnerEmail, "registrado")+".", props.Text{Size: 9, Top: 28, Left: 4}),
				text.New("La licencia es de un solo uso.", props.Text{Size: 8, Top: 40, Left: 4, Color: colorGray}),
			),
		),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func keyTypeLabel(keyType string) string {
	switch keyType {
	case entity.KeyTypeBranch:
		return "LICENCIA DE SUCURSAL"
	case entity.KeyTypeMaster:
		return "LICENCIA MAESTRA"
	}
	return "LICENCIA DE OUTLET"
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
