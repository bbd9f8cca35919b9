package checkout

import (
	"regexp"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const (
	MsgRequired    = "This field is required"
	MsgInvalidMail = "Please enter a valid email address"
	MsgInvalidCard = "Please enter a valid card number"
	MsgInvalidCVV  = "Please enter a valid CVV"
)

var (
	emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
	cardGroup    = regexp.MustCompile(`\d{4,16}`)
	nonDigit     = regexp.MustCompile(`[^0-9]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// ValidationErrors maps a form field name to its message. Empty means valid.
type ValidationErrors map[string]string

// Validate checks form without side effects. Format rules only run on
// non-empty fields so the required message takes precedence.
func Validate(form domain.CheckoutForm) ValidationErrors {
	errs := ValidationErrors{}

	required := []struct {
		name  string
		value string
	}{
		{"firstName", form.FirstName},
		{"lastName", form.LastName},
		{"email", form.Email},
		{"address", form.Address},
		{"city", form.City},
		{"state", form.State},
		{"zipCode", form.ZipCode},
		{"cardNumber", form.CardNumber},
		{"expiryDate", form.ExpiryDate},
		{"cvv", form.CVV},
		{"cardName", form.CardName},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs[f.name] = MsgRequired
		}
	}

	if _, ok := errs["email"]; !ok && !emailPattern.MatchString(form.Email) {
		errs["email"] = MsgInvalidMail
	}
	if _, ok := errs["cardNumber"]; !ok && len(nonDigit.ReplaceAllString(form.CardNumber, "")) < 16 {
		errs["cardNumber"] = MsgInvalidCard
	}
	if _, ok := errs["cvv"]; !ok && len(form.CVV) < 3 {
		errs["cvv"] = MsgInvalidCVV
	}
	return errs
}

// FormatCardNumber keeps the first run of up to 16 digits and groups it by four.
func FormatCardNumber(value string) string {
	digits := nonDigit.ReplaceAllString(whitespace.ReplaceAllString(value, ""), "")
	match := cardGroup.FindString(digits)
	if match == "" {
		return digits
	}

	parts := make([]string, 0, 4)
	for i := 0; i < len(match); i += 4 {
		end := min(i+4, len(match))
		parts = append(parts, match[i:end])
	}
	return strings.Join(parts, " ")
}

// FormatExpiryDate renders digits as MM/YY.
func FormatExpiryDate(value string) string {
	digits := nonDigit.ReplaceAllString(whitespace.ReplaceAllString(value, ""), "")
	if len(digits) >= 2 {
		return digits[:2] + "/" + digits[2:min(4, len(digits))]
	}
	return digits
}

// Normalize applies the card and expiry formatting a checkout form receives before validation.
func Normalize(form domain.CheckoutForm) domain.CheckoutForm {
	form.CardNumber = FormatCardNumber(form.CardNumber)
	form.ExpiryDate = FormatExpiryDate(form.ExpiryDate)
	return form
}
