package identity

import (
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "caregate/pkg/domain-errors"
)

// personnummerLength is the full 12-digit form (YYYYMMDDNNNN).
const personnummerLength = 12

// NormalizePersonalNumber validates and canonicalizes a Swedish personnummer
// as received from the identity broker. Accepts the 12-digit form with or
// without the customary separator ("YYYYMMDD-NNNN"); anything else fails the
// whole login attempt.
func NormalizePersonalNumber(raw string) (string, error) {
	pn := strings.ReplaceAll(strings.TrimSpace(raw), "-", "")
	if pn == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "personal number is missing")
	}
	if len(pn) != personnummerLength || !govalidator.IsNumeric(pn) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "personal number is malformed")
	}
	return pn, nil
}
