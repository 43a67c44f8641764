package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Validation couples a custom validation tag with its translated message.
// A nil Fn attaches the message to an existing (builtin) tag instead of
// registering a new one.
type Validation struct {
	Tag      string
	Text     string
	Fn       validator.Func
	Override bool
}

var (
	usernameTag   = "username"
	usernameText  = "only letters, digits and underscores are allowed"
	usernameRegex = regexp.MustCompile(`^\w+$`)

	requiredText = "this field is required"
	phoneText    = "must be a phone number in international format"
)

// InitValidators wires the base en translations and the app-wide rules:
// the username charset, the phone format message and the friendlier
// "required" messages surfaced to the frontend.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(jsonFieldName)

	RegisterValidations(validate, translator,
		Validation{Tag: usernameTag, Text: usernameText, Fn: usernameValidation},
		Validation{Tag: "required", Text: requiredText, Override: true},
		Validation{Tag: "required_with", Text: requiredText, Override: true},
		Validation{Tag: "e164", Text: phoneText, Override: true},
	)
}

// RegisterValidations registers each rule and its message on the app's
// validator instance. Domain packages declare their rules as data and
// register them here in one call.
func RegisterValidations(validate *validator.Validate, translator ut.Translator, vals ...Validation) {
	for _, v := range vals {
		if v.Fn != nil {
			_ = validate.RegisterValidation(v.Tag, v.Fn)
		}
		registerTranslation(validate, translator, v)
	}
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, v Validation) {
	_ = validate.RegisterTranslation(
		v.Tag, translator,
		func(t ut.Translator) error { return t.Add(v.Tag, v.Text, v.Override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(v.Tag, fe.Field())
			return s
		},
	)
}

// jsonFieldName surfaces JSON tag names in errors instead of Go struct names.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func usernameValidation(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}
