package provision

import (
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password the identity provider accepts.
const MinPasswordLength = 8

const passwordFiller = "Fm7#kQ2x"

// DerivePassword builds the temporary account password from the local part
// of email and the last four ASCII digits of phone, padded to MinPasswordLength.
// The customer never sees it; they set their own through the reset link.
func DerivePassword(email, phone string) string {
	local := email
	if at := strings.LastIndex(email, "@"); at >= 0 {
		local = email[:at]
	}

	var digits []rune
	for _, r := range phone {
		if '0' <= r && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}

	pw := local + string(digits)
	for n := utf8.RuneCountInString(pw); n < MinPasswordLength; n++ {
		pw += string(passwordFiller[n%len(passwordFiller)])
	}
	return pw
}
