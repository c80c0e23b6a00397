// Package textnorm normaliza texto de entrada antes de escribirlo en los dos almacenes,
// para que el perfil local y la metadata del proveedor guarden exactamente lo mismo.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Email recorta espacios y pasa a minúsculas.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DisplayName aplica NFC y colapsa espacios internos ("José  Pérez" escrito con
// acentos combinados y dobles espacios queda igual que su forma compuesta).
func DisplayName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
