package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	tagAlnumUnder = "alphanum_"
	txtAlnumUnder = "only alphanumeric characters and underscores are allowed"
	txtRequired   = "this field is required"
)

var alnumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

// InitValidators wires the shared validator instance: default English
// translations, JSON tag names in error messages and the package's custom
// tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report JSON field names, not Go struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]; name != "-" {
			return name
		}
		return ""
	})

	_ = validate.RegisterValidation(tagAlnumUnder, func(fl validator.FieldLevel) bool {
		return alnumUnderRegex.MatchString(fl.Field().String())
	})
	RegisterCustomTranslation(validate, translator, tagAlnumUnder, txtAlnumUnder)

	// friendlier default for the most common failures
	RegisterCustomTranslation(validate, translator, "required", txtRequired, true)
	RegisterCustomTranslation(validate, translator, "required_with", txtRequired, true)
}

// RegisterCustomTranslation maps a validation tag to a fixed message.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	ovrd := len(override) > 0 && override[0]
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}
