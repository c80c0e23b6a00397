// Package docs publica la definición OpenAPI de la API para swag y el middleware de Swagger UI.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var swaggerJSON string

type spec struct{}

func (spec) ReadDoc() string { return swaggerJSON }

func init() {
	swag.Register(swag.Name, spec{})
}
