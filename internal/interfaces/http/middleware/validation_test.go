package middleware

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentio/backend/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	type escalateRequest struct {
		Reason string `json:"reason" binding:"required"`
	}

	err := binding.Validator.ValidateStruct(&escalateRequest{})

	// field names in errors use the json tag, not the Go field
	validationErrors, ok := err.(validator.ValidationErrors)
	require.True(t, ok)
	require.Len(t, validationErrors, 1)
	assert.Equal(t, "reason", validationErrors[0].Field())
}

func TestFormatValidationErrors(t *testing.T) {
	SetupValidator()

	type createCaseRequest struct {
		Description   string `json:"description" binding:"required,max=10"`
		ViolationType string `json:"violation_type" binding:"required,oneof=DAMAGED LATE_RETURN NOT_RETURNED"`
		EvidenceURL   string `json:"evidence_url" binding:"omitempty,url"`
	}

	t.Run("reports one detail per failing field", func(t *testing.T) {
		req := createCaseRequest{
			Description:   "this description is far past the limit",
			ViolationType: "SCRATCHED",
			EvidenceURL:   "not-a-url",
		}

		resp := FormatValidationErrors(binding.Validator.ValidateStruct(&req), "req-11")

		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-11", resp.Error.RequestID)
		require.Len(t, resp.Error.Details, 3)

		byField := map[string]string{}
		for _, d := range resp.Error.Details {
			byField[d.Field] = d.Message
		}
		assert.Equal(t, "Must be at most 10 characters", byField["description"])
		assert.Equal(t, "Must be one of: DAMAGED LATE_RETURN NOT_RETURNED", byField["violation_type"])
		assert.Equal(t, "Invalid URL format", byField["evidence_url"])
	})

	t.Run("missing required field", func(t *testing.T) {
		resp := FormatValidationErrors(binding.Validator.ValidateStruct(&createCaseRequest{ViolationType: "DAMAGED"}), "")

		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "description", resp.Error.Details[0].Field)
		assert.Equal(t, "This field is required", resp.Error.Details[0].Message)
	})

	t.Run("non-validator errors produce an empty detail list", func(t *testing.T) {
		resp := FormatValidationErrors(assert.AnError, "req-12")

		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})
}
