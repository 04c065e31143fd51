package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/go-playground/validator/v10"
)

type Address struct {
	Street   string `json:"street" validate:"required"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state" validate:"required"`
	Pincode  string `json:"pincode" validate:"required,pincode"`
	Landmark string `json:"landmark,omitempty" validate:"max=200"`
}

type FormData struct {
	CustomerName        string  `json:"customer_name" validate:"required,min=2,max=100"`
	PhoneNumber         string  `json:"phone_number" validate:"required,in_mobile"`
	Email               string  `json:"email" validate:"required,email"`
	DeliveryAddress     Address `json:"delivery_address"`
	SpecialInstructions string  `json:"special_instructions,omitempty" validate:"max=500"`
}

var (
	mobileRe  = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodeRe = regexp.MustCompile(`^\d{6}$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("in_mobile", func(fl validator.FieldLevel) bool {
		return mobileRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return pincodeRe.MatchString(fl.Field().String())
	})
	return v
}

// Normalize trims input and drops spaces from the phone number, so
// "98765 43210" is accepted.
func (f *FormData) Normalize() {
	f.CustomerName = strings.TrimSpace(f.CustomerName)
	f.PhoneNumber = strings.ReplaceAll(strings.TrimSpace(f.PhoneNumber), " ", "")
	f.Email = strings.TrimSpace(f.Email)
	f.SpecialInstructions = strings.TrimSpace(f.SpecialInstructions)
	a := &f.DeliveryAddress
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Pincode = strings.TrimSpace(a.Pincode)
	a.Landmark = strings.TrimSpace(a.Landmark)
}

// Validate returns a *ValidationError listing every bad field.
func (f FormData) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{Fields: map[string]string{}}
	for _, fe := range verrs {
		ve.Fields[fieldPath(fe)] = message(fe)
	}
	return ve
}

func (f FormData) customer() orders.CustomerDetails {
	return orders.CustomerDetails{
		Name:                f.CustomerName,
		Phone:               f.PhoneNumber,
		Email:               f.Email,
		SpecialInstructions: f.SpecialInstructions,
	}
}

func (f FormData) address() orders.Address {
	a := f.DeliveryAddress
	return orders.Address{Street: a.Street, City: a.City, State: a.State, Pincode: a.Pincode, Landmark: a.Landmark}
}

// fieldPath drops the root struct name: "FormData.delivery_address.pincode"
// becomes "delivery_address.pincode".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "in_mobile":
		return "must be a valid 10-digit mobile number"
	case "pincode":
		return "must be a 6-digit pincode"
	}
	return "is invalid"
}

// ValidationError matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
