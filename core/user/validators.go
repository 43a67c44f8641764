package user

import (
	"fmt"
	"regexp"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/lehine87/educanvas/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	allNumRegex = regexp.MustCompile(`^[0-9]+$`)
)

// InitValidators registers user-specific validators on the app's validator instance.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterValidations(validate, translator,
		core.Validation{Tag: roleTag, Text: roleText, Fn: roleValidation},
		core.Validation{Tag: pwdMinLenTag, Text: pwdMinLenText},
		core.Validation{Tag: pwdNoSpaceTag, Text: pwdNoSpaceText},
		core.Validation{Tag: pwdNotAllNumTag, Text: pwdNotAllNumText},
	)

	validate.RegisterStructValidation(newUserStructValidation, NewUser{})
	validate.RegisterStructValidation(updateUserStructValidation, UpdateUser{})
}

func roleValidation(fl validator.FieldLevel) bool {
	return IsValidRole(fl.Field().String())
}

func newUserStructValidation(sl validator.StructLevel) {
	nu := sl.Current().Interface().(NewUser)
	validatePassword(sl, nu.Password, "Password")
}

func updateUserStructValidation(sl validator.StructLevel) {
	uu := sl.Current().Interface().(UpdateUser)
	if uu.Password != "" {
		validatePassword(sl, uu.Password, "Password")
	}
}

func validatePassword(sl validator.StructLevel, pwd, fieldName string) {
	if len(pwd) < pwdMinLen {
		sl.ReportError(pwd, fieldName, fieldName, pwdMinLenTag, "")
	}
	for _, r := range pwd {
		if unicode.IsSpace(r) {
			sl.ReportError(pwd, fieldName, fieldName, pwdNoSpaceTag, "")
			break
		}
	}
	if allNumRegex.MatchString(pwd) {
		sl.ReportError(pwd, fieldName, fieldName, pwdNotAllNumTag, "")
	}
}
