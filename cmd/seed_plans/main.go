// seed_plans carga el catálogo de planes desde un CSV exportado de la hoja comercial
// (separador ';', codificación ISO-8859-1).
//
// Columnas: nombre;precio;duracion_dias;descripcion
// Uso: go run ./cmd/seed_plans [ruta/planes.csv]
// Por defecto busca planes.csv en el directorio actual. Los planes ya existentes se omiten.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/application/provisioning"
	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/infrastructure/postgres"
	"github.com/jhoicas/kds-identity-api/pkg/config"
	"github.com/jhoicas/kds-identity-api/pkg/logger"
)

func main() {
	csvPath := "planes.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	plans, err := readPlans(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	uc := provisioning.NewUseCase(provisioning.Deps{
		Tx:    postgres.NewTxRunner(pool),
		Plans: postgres.NewPlanTypeRepository(pool),
		Log:   log.Component("seed_plans"),
	})

	var created, skipped int
	for _, p := range plans {
		if _, err := uc.CreatePlan(ctx, p); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				skipped++
				continue
			}
			log.Fatal().Err(err).Str("plan", p.Name).Msg("crear plan")
		}
		created++
	}
	fmt.Printf("Planes: %d creados, %d ya existentes\n", created, skipped)
}

// readPlans parsea el CSV ya decodificado a UTF-8. La primera fila es cabecera.
func readPlans(r io.Reader) ([]dto.CreatePlanRequest, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []dto.CreatePlanRequest
	for i, row := range rows {
		if i == 0 || len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("fila %d: se esperaban al menos 3 columnas", i+1)
		}
		// La hoja comercial usa coma decimal.
		price, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(row[1]), ",", "."))
		if err != nil {
			return nil, fmt.Errorf("fila %d: precio %q: %w", i+1, row[1], err)
		}
		days, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("fila %d: duración %q: %w", i+1, row[2], err)
		}
		p := dto.CreatePlanRequest{Name: strings.TrimSpace(row[0]), Price: price, DurationDays: days}
		if len(row) > 3 {
			p.Description = strings.TrimSpace(row[3])
		}
		out = append(out, p)
	}
	return out, nil
}
