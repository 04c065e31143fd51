package checkout

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormData_NormalizeAcceptsSpacedPhone(t *testing.T) {
	f := validForm()
	f.PhoneNumber = " 98765 43210 "
	f.Normalize()

	assert.Equal(t, "9876543210", f.PhoneNumber)
	assert.NoError(t, f.Validate())
}

func TestFormData_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(f *FormData)
		field string
	}{
		{"missing name", func(f *FormData) { f.CustomerName = "" }, "customer_name"},
		{"short name", func(f *FormData) { f.CustomerName = "A" }, "customer_name"},
		{"landline", func(f *FormData) { f.PhoneNumber = "0201234567" }, "phone_number"},
		{"eleven digits", func(f *FormData) { f.PhoneNumber = "98765432101" }, "phone_number"},
		{"bad email", func(f *FormData) { f.Email = "asha@" }, "email"},
		{"missing city", func(f *FormData) { f.DeliveryAddress.City = "" }, "delivery_address.city"},
		{"alpha pincode", func(f *FormData) { f.DeliveryAddress.Pincode = "41A001" }, "delivery_address.pincode"},
		{"long instructions", func(f *FormData) { f.SpecialInstructions = strings.Repeat("x", 501) }, "special_instructions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.edit(&f)
			f.Normalize()

			err := f.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
			assert.Len(t, ve.Fields, 1)
		})
	}
}

func TestValidationError_MessageIsStable(t *testing.T) {
	ve := &ValidationError{Fields: map[string]string{"phone_number": "bad", "email": "bad"}}
	assert.Equal(t, "invalid checkout details: email bad; phone_number bad", ve.Error())
}
