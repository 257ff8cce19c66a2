package billing

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	msgInvalidPayload     = "Invalid payload"
	msgInvalidHottok      = "Invalid hottok"
	msgInvalidEvent       = "Invalid or unsupported event type"
	msgInvalidBuyerEmail  = "Invalid or missing buyer email"
	msgInvalidTransaction = "Invalid or missing transaction ID"
)

// whitespaceClass lists the Unicode space separators, BOM and line terminators
// an email may not contain. RE2's \s only covers ASCII.
const whitespaceClass = `\t\n\v\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}`

var buyerEmailPattern = regexp.MustCompile(
	`^[^@` + whitespaceClass + `]+@[^@` + whitespaceClass + `]+\.[^@` + whitespaceClass + `]+$`,
)

// purchaseFields holds the raw string fields pulled out of the body. Field order
// is the order in which failures are reported.
type purchaseFields struct {
	Hottok        string `validate:"required,utf16max=512"`
	Event         string `validate:"required,oneof=PURCHASE_APPROVED PURCHASE_COMPLETE PURCHASE_REFUNDED PURCHASE_CANCELED SUBSCRIPTION_CANCELLATION"`
	BuyerEmail    string `validate:"required,utf16max=255,buyer_email"`
	TransactionID string `validate:"required,utf16max=255"`
}

var fieldOrder = []struct {
	name    string
	message string
}{
	{"Hottok", msgInvalidHottok},
	{"Event", msgInvalidEvent},
	{"BuyerEmail", msgInvalidBuyerEmail},
	{"TransactionID", msgInvalidTransaction},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("buyer_email", func(fl validator.FieldLevel) bool {
		return buyerEmailPattern.MatchString(fl.Field().String())
	})
	// Lengths are counted in UTF-16 code units, as the sending side counts them.
	_ = v.RegisterValidation("utf16max", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf16Len(fl.Field().String()) <= limit
	})
	return v
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func isWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		0x00A0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}

func trimWhitespace(s string) string {
	return strings.TrimFunc(s, isWhitespace)
}

// ValidatePurchasePayload checks a decoded Hotmart webhook body and returns the
// normalized event. It has no side effects; the returned error is a *ValidationError.
func ValidatePurchasePayload(body interface{}) (PurchaseEvent, error) {
	obj, ok := body.(map[string]interface{})
	if !ok || obj == nil {
		return PurchaseEvent{}, &ValidationError{Message: msgInvalidPayload}
	}

	// Values of the wrong JSON type become "" and fail the required rule.
	fields := purchaseFields{
		Hottok:        stringAt(obj, "hottok"),
		Event:         stringAt(obj, "event"),
		BuyerEmail:    stringAt(obj, "data", "buyer", "email"),
		TransactionID: trimWhitespace(stringAt(obj, "data", "purchase", "transaction")),
	}

	if err := validate.Struct(fields); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return PurchaseEvent{}, &ValidationError{Message: msgInvalidPayload}
		}
		failed := make(map[string]struct{}, len(verrs))
		for _, fe := range verrs {
			failed[fe.StructField()] = struct{}{}
		}
		for _, f := range fieldOrder {
			if _, bad := failed[f.name]; bad {
				return PurchaseEvent{}, &ValidationError{Field: f.name, Message: f.message}
			}
		}
		return PurchaseEvent{}, &ValidationError{Message: msgInvalidPayload}
	}

	return PurchaseEvent{
		SharedSecret:  fields.Hottok,
		EventType:     EventType(fields.Event),
		BuyerEmail:    strings.ToLower(fields.BuyerEmail),
		TransactionID: fields.TransactionID,
	}, nil
}

// stringAt walks nested JSON objects and returns the string at path, or "".
func stringAt(obj map[string]interface{}, path ...string) string {
	var cur interface{} = obj
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return s
}
