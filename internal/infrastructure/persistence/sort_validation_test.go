package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "DESC"},
		{"asc", "ASC"},
		{"  ASC  ", "ASC"},
		{"desc", "DESC"},
		{"newest", "DESC"},
		{"ASC; DROP TABLE violation_cases;--", "DESC"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ValidateSortOrder(tt.input), "input %q", tt.input)
	}
}

func TestValidateSortField(t *testing.T) {
	t.Run("whitelisted fields pass through", func(t *testing.T) {
		assert.Equal(t, "penalty_amount", ValidateSortField("penalty_amount", ViolationCaseSortFields, "created_at"))
		assert.Equal(t, "processed_at", ValidateSortField(" processed_at ", DepositRefundSortFields, "created_at"))
	})

	t.Run("everything else falls back to the default", func(t *testing.T) {
		for _, input := range []string{
			"",
			"   ",
			"damage_percentage",
			"PENALTY_AMOUNT",
			"status; DROP TABLE violation_cases;--",
			"status' OR '1'='1",
			"status UNION SELECT * FROM users",
			"status, (SELECT password FROM users)",
		} {
			assert.Equal(t, "created_at", ValidateSortField(input, ViolationCaseSortFields, "created_at"), "input %q", input)
		}
	})
}

func TestSortFieldWhitelists(t *testing.T) {
	// every list page sorts by these, so they stay whitelisted
	for _, field := range []string{"id", "created_at", "updated_at", "status", "order_id"} {
		assert.True(t, ViolationCaseSortFields[field], "violation cases should sort by %s", field)
		assert.True(t, DepositRefundSortFields[field], "deposit refunds should sort by %s", field)
	}
}
