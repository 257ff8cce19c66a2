package billing

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, raw string) interface{} {
	t.Helper()
	var body interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	return body
}

func validBody() map[string]interface{} {
	return map[string]interface{}{
		"hottok": "secret-token",
		"event":  "PURCHASE_APPROVED",
		"data": map[string]interface{}{
			"buyer":    map[string]interface{}{"email": "Maria.Silva@Example.COM"},
			"purchase": map[string]interface{}{"transaction": "  HP1234567890 "},
		},
	}
}

func TestValidatePurchasePayload_Normalizes(t *testing.T) {
	ev, err := ValidatePurchasePayload(validBody())
	require.NoError(t, err)

	assert.Equal(t, "secret-token", ev.SharedSecret)
	assert.Equal(t, EventPurchaseApproved, ev.EventType)
	assert.Equal(t, "maria.silva@example.com", ev.BuyerEmail)
	assert.Equal(t, "HP1234567890", ev.TransactionID)
}

func TestValidatePurchasePayload_FromJSON(t *testing.T) {
	raw := `{
		"hottok": "abc",
		"event": "SUBSCRIPTION_CANCELLATION",
		"data": {"buyer": {"email": "buyer@example.pt"}, "purchase": {"transaction": "HP1"}}
	}`

	ev, err := ValidatePurchasePayload(decodeBody(t, raw))
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionCancellation, ev.EventType)
	assert.Equal(t, "buyer@example.pt", ev.BuyerEmail)
}

func TestValidatePurchasePayload_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b map[string]interface{})
		body    interface{}
		message string
	}{
		{name: "array body", body: []interface{}{"x"}, message: msgInvalidPayload},
		{name: "string body", body: "hello", message: msgInvalidPayload},
		{name: "nil body", body: nil, message: msgInvalidPayload},
		{name: "missing hottok", mutate: func(b map[string]interface{}) { delete(b, "hottok") }, message: msgInvalidHottok},
		{name: "empty hottok", mutate: func(b map[string]interface{}) { b["hottok"] = "" }, message: msgInvalidHottok},
		{name: "numeric hottok", mutate: func(b map[string]interface{}) { b["hottok"] = 42.0 }, message: msgInvalidHottok},
		{name: "long hottok", mutate: func(b map[string]interface{}) { b["hottok"] = strings.Repeat("a", 513) }, message: msgInvalidHottok},
		{name: "missing event", mutate: func(b map[string]interface{}) { delete(b, "event") }, message: msgInvalidEvent},
		{name: "unknown event", mutate: func(b map[string]interface{}) { b["event"] = "PURCHASE_DELAYED" }, message: msgInvalidEvent},
		{name: "lowercase event", mutate: func(b map[string]interface{}) { b["event"] = "purchase_approved" }, message: msgInvalidEvent},
		{name: "missing data", mutate: func(b map[string]interface{}) { delete(b, "data") }, message: msgInvalidBuyerEmail},
		{name: "missing email", mutate: func(b map[string]interface{}) {
			b["data"].(map[string]interface{})["buyer"] = map[string]interface{}{}
		}, message: msgInvalidBuyerEmail},
		{name: "malformed email", mutate: func(b map[string]interface{}) {
			b["data"].(map[string]interface{})["buyer"] = map[string]interface{}{"email": "not-an-email"}
		}, message: msgInvalidBuyerEmail},
		{name: "email without tld", mutate: func(b map[string]interface{}) {
			b["data"].(map[string]interface{})["buyer"] = map[string]interface{}{"email": "a@b"}
		}, message: msgInvalidBuyerEmail},
		{name: "email with inner whitespace", mutate: func(b map[string]interface{}) {
			b["data"].(map[string]interface{})["buyer"] = map[string]interface{}{"email": "maria silva@example.com"}
		}, message: msgInvalidBuyerEmail},
		{name: "email with no-break space", mutate: func(b map[string]interface{}) {
			b["data"].(map[string]interface{})["buyer"] = map[string]interface{}{"email": "maria\u00a0silva@example.com"}
		}, message: msgInvalidBuyerEmail},
		{name: "email with line separator", mutate: func(b map[string]interface{}) {
			b["data"].(map[string]interface{})["buyer"] = map[string]interface{}{"email": "maria@example.com\u2028"}
		}, message: msgInvalidBuyerEmail},
		{name: "email with byte order mark", mutate: func(b map[string]interface{}) {
			b["data"].(map[string]interface{})["buyer"] = map[string]interface{}{"email": "\ufeffmaria@example.com"}
		}, message: msgInvalidBuyerEmail},
		{name: "long email", mutate: func(b map[string]interface{}) {
			b["data"].(map[string]interface{})["buyer"] = map[string]interface{}{"email": strings.Repeat("a", 250) + "@example.com"}
		}, message: msgInvalidBuyerEmail},
		{name: "missing transaction", mutate: func(b map[string]interface{}) {
			delete(b["data"].(map[string]interface{}), "purchase")
		}, message: msgInvalidTransaction},
		{name: "blank transaction", mutate: func(b map[string]interface{}) {
			b["data"].(map[string]interface{})["purchase"] = map[string]interface{}{"transaction": "   "}
		}, message: msgInvalidTransaction},
		{name: "long transaction", mutate: func(b map[string]interface{}) {
			b["data"].(map[string]interface{})["purchase"] = map[string]interface{}{"transaction": strings.Repeat("9", 256)}
		}, message: msgInvalidTransaction},
		{name: "transaction over limit in utf-16 units", mutate: func(b map[string]interface{}) {
			// 128 runes, 256 code units
			b["data"].(map[string]interface{})["purchase"] = map[string]interface{}{"transaction": strings.Repeat("\U0001F600", 128)}
		}, message: msgInvalidTransaction},
		{name: "blank transaction with unicode spaces", mutate: func(b map[string]interface{}) {
			b["data"].(map[string]interface{})["purchase"] = map[string]interface{}{"transaction": "\u3000\ufeff\u00a0"}
		}, message: msgInvalidTransaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if tt.mutate != nil {
				b := validBody()
				tt.mutate(b)
				body = b
			}

			_, err := ValidatePurchasePayload(body)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.message, verr.Message)
		})
	}
}

func TestValidatePurchasePayload_FirstFailureWins(t *testing.T) {
	_, err := ValidatePurchasePayload(map[string]interface{}{"event": "NOPE"})
	require.Error(t, err)
	assert.Equal(t, msgInvalidHottok, err.Error())
}

func TestValidatePurchasePayload_AcceptsAllEvents(t *testing.T) {
	for _, ev := range []EventType{
		EventPurchaseApproved,
		EventPurchaseComplete,
		EventPurchaseRefunded,
		EventPurchaseCanceled,
		EventSubscriptionCancellation,
	} {
		b := validBody()
		b["event"] = string(ev)

		got, err := ValidatePurchasePayload(b)
		require.NoError(t, err, ev)
		assert.Equal(t, ev, got.EventType)
	}
}

func TestValidatePurchasePayload_AcceptsLengthLimits(t *testing.T) {
	b := validBody()
	b["hottok"] = strings.Repeat("a", 512)
	email := strings.Repeat("a", 243) + "@example.com"
	require.Len(t, email, 255)
	b["data"] = map[string]interface{}{
		"buyer":    map[string]interface{}{"email": email},
		"purchase": map[string]interface{}{"transaction": strings.Repeat("9", 255)},
	}

	ev, err := ValidatePurchasePayload(b)
	require.NoError(t, err)
	assert.Len(t, ev.SharedSecret, 512)
	assert.Equal(t, email, ev.BuyerEmail)
	assert.Len(t, ev.TransactionID, 255)
}

func TestValidatePurchasePayload_CountsUTF16Units(t *testing.T) {
	b := validBody()
	b["hottok"] = strings.Repeat("\U0001F600", 256)
	_, err := ValidatePurchasePayload(b)
	require.NoError(t, err)

	b["hottok"] = strings.Repeat("\U0001F600", 256) + "a"
	_, err = ValidatePurchasePayload(b)
	require.Error(t, err)
	assert.Equal(t, msgInvalidHottok, err.Error())

	b["hottok"] = strings.Repeat("\u00e9", 512)
	_, err = ValidatePurchasePayload(b)
	assert.NoError(t, err)
}

func TestValidatePurchasePayload_TrimsUnicodeSpaceAroundTransaction(t *testing.T) {
	b := validBody()
	b["data"].(map[string]interface{})["purchase"] = map[string]interface{}{"transaction": "\ufeff\u3000HP1\u00a0\n"}

	ev, err := ValidatePurchasePayload(b)
	require.NoError(t, err)
	assert.Equal(t, "HP1", ev.TransactionID)
}
