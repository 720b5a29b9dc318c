package user

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/darasa/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdTexts = map[string]string{
		pwdMinLenTag:    pwdMinLenText,
		pwdNoSpaceTag:   pwdNoSpaceText,
		pwdNotAllNumTag: pwdNotAllNumText,
		pwdAttrSimTag:   pwdAttrSimText,
	}
)

func init() {
	_ = core.Validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(allRolesTag, allRolesText)

	core.Validate.RegisterStructValidation(newUserStructValidation, NewUser{})
	for tag, text := range pwdTexts {
		core.RegisterCustomTranslation(tag, text)
	}
}

// allRolesValidation checks that provided user roles are all known.
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		var known bool
		for _, r := range AllRoles {
			if role == r {
				known = true
				break
			}
		}
		if !known {
			return false
		}
	}
	return true
}

// newUserStructValidation applies the password policy to NewUser.
func newUserStructValidation(sl validator.StructLevel) {
	nu, ok := sl.Current().Interface().(NewUser)
	if !ok {
		return
	}
	if tag := checkPasswordPolicy(nu.Password, nu.Username, nu.Email, nu.FirstName, nu.LastName); tag != "" {
		sl.ReportError(nu.Password, "password", "Password", tag, "")
	}
}

// validatePassword is the standalone variant used by password resets.
func validatePassword(pwd string, usrAttrs ...string) error {
	if tag := checkPasswordPolicy(pwd, usrAttrs...); tag != "" {
		text := pwdTexts[tag]
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: text})
	}
	return nil
}

// checkPasswordPolicy returns the tag of the first violated rule, or "":
// - minLen: 8
// - no whitespace
// - not all numeric
// - no user attrs similarity
func checkPasswordPolicy(pwd string, usrAttrs ...string) string {
	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	for _, attr := range usrAttrs {
		if getRatio(strings.ToLower(pwd), strings.ToLower(attr)) >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}
	return ""
}
