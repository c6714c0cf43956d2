package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"coachgate/internal/roles"
)

// custom validation tags
const (
	notBlankTag = "notblank"
	roleTag     = "role"
)

// Validator validates request structs and reports errors in English using
// JSON field names. It implements echo.Validator.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a Validator with the custom tags registered.
func New() *Validator {
	v := validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)
	_ = v.RegisterValidation(roleTag, validRole)

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, roleTag} {
		_ = v.RegisterTranslation(tag, translator, noop, translateCustom)
	}

	return &Validator{validate: v, translator: translator}
}

// Validate implements echo.Validator. Field errors are joined into one
// message sorted by field.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Translate(v.translator))
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case roleTag:
		return fe.Field() + " must be one of " + strings.Join(roleNames(), ", ")
	default:
		return fe.Error()
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

func validRole(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := roles.Parse(s)
	return err == nil
}

func roleNames() []string {
	names := make([]string, len(roles.All))
	for i, r := range roles.All {
		names[i] = string(r)
	}
	return names
}
