package service

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation limits.
const (
	MinPasswordLength   = 8
	MaxPasswordLength   = 100
	MaxEmailLength      = 254
	MaxNameLength       = 50
	MaxPhoneLength      = 15
	MaxCampaignName     = 200
	MaxDescription      = 2000
	MaxLandingURLLength = 2048
	MaxTemplateBody     = 20000
	MaxSMSBodyLength    = 480
)

const passwordSpecials = "@$!%*?&"

var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

// validator accumulates field messages.
type validator struct {
	errs []string
}

func (v *validator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Sprintf(format, args...))
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errs}
}

func (v *validator) email(field, value string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		v.addf("%s is required.", field)
	case len(value) > MaxEmailLength:
		v.addf("%s must be at most %d characters.", field, MaxEmailLength)
	default:
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value || !strings.Contains(value[strings.LastIndex(value, "@")+1:], ".") {
			v.addf("%s is not a valid e-mail address.", field)
		}
	}
}

func (v *validator) name(field, value string, required bool, max int) {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			v.addf("%s is required.", field)
		}
		return
	}
	if utf8.RuneCountInString(value) > max {
		v.addf("%s must be at most %d characters.", field, max)
	}
}

func (v *validator) password(value string) {
	n := utf8.RuneCountInString(value)
	if n < MinPasswordLength || n > MaxPasswordLength {
		v.addf("Password must be between %d and %d characters.", MinPasswordLength, MaxPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, r := range value {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		v.addf("Password must contain an uppercase letter, a lowercase letter, a digit and one of %s.", passwordSpecials)
	}
}

func (v *validator) phone(field, value string) {
	if len(value) > MaxPhoneLength {
		v.addf("%s must be at most %d characters.", field, MaxPhoneLength)
		return
	}
	if !phonePattern.MatchString(value) {
		v.addf("%s is not a valid phone number.", field)
	}
}

// landingURL accepts absolute http(s) URLs with a host.
func (v *validator) landingURL(field, value string) {
	if len(value) > MaxLandingURLLength {
		v.addf("%s must be at most %d characters.", field, MaxLandingURLLength)
		return
	}
	if err := ValidateLandingURL(value); err != nil {
		v.addf("%s must be an absolute http or https URL.", field)
	}
}

// ValidateLandingURL checks that raw is an absolute http(s) URL with a host.
func ValidateLandingURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
