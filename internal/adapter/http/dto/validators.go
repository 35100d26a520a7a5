package dto

import (
	"reflect"
	"regexp"
	"strings"

	"ledger-wallet/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	hexIDRe    = regexp.MustCompile(`^[0-9a-f]{64}$`)
	outputIDRe = regexp.MustCompile(`^[0-9a-f]{64}:[0-9]{1,4}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("hex_id", validateHexID)
		_ = v.RegisterValidation("output_id", validateOutputID)
		_ = v.RegisterValidation("ledger_state", validateLedgerState)
	}
}

// validateHexID accepts lowercase hex blake2b-256 ids.
func validateHexID(fl validator.FieldLevel) bool {
	return hexIDRe.MatchString(fl.Field().String())
}

// validateOutputID accepts "<transaction id>:<output index>".
func validateOutputID(fl validator.FieldLevel) bool {
	return outputIDRe.MatchString(fl.Field().String())
}

func validateLedgerState(fl validator.FieldLevel) bool {
	switch domain.ConfirmationState(fl.Field().String()) {
	case domain.ConfirmationPending, domain.ConfirmationConfirmed,
		domain.ConfirmationConflicting, domain.ConfirmationUnknown:
		return true
	}
	return false
}

// TrimStrings trims whitespace from every exported string field (including
// *string) of a struct pointer.
func TrimStrings(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Ptr:
			if !f.IsNil() && f.Elem().Kind() == reflect.String {
				f.Elem().SetString(strings.TrimSpace(f.Elem().String()))
			}
		}
	}
}
