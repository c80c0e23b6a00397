package identity

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/pkg/textnorm"
)

const (
	minCredentialLen = 8
	minNameLen       = 2
	maxNameLen       = 255
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
}

// ValidateEmail normaliza y valida el email. Devuelve la forma normalizada.
func ValidateEmail(raw string) (string, error) {
	email := textnorm.Email(raw)
	if email == "" {
		return "", invalid("email requerido")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", invalid("email con formato inválido")
	}
	return email, nil
}

// ValidateCredential mínimo 8 caracteres, al menos un dígito y una mayúscula.
func ValidateCredential(c string) error {
	if utf8.RuneCountInString(c) < minCredentialLen {
		return invalid("la contraseña debe tener al menos 8 caracteres")
	}
	var digit, upper bool
	for _, r := range c {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		}
	}
	if !digit {
		return invalid("la contraseña debe contener al menos un número")
	}
	if !upper {
		return invalid("la contraseña debe contener al menos una mayúscula")
	}
	return nil
}

// ValidateFullName normaliza (NFC, espacios) y valida longitud.
func ValidateFullName(raw string) (string, error) {
	name := textnorm.DisplayName(raw)
	n := utf8.RuneCountInString(name)
	if n < minNameLen || n > maxNameLen {
		return "", invalid("el nombre debe tener entre 2 y 255 caracteres")
	}
	return name, nil
}

func normalizePhone(raw string) string {
	return strings.TrimSpace(raw)
}
