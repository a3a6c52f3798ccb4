package checkout

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/omega-fast-coder/panoptikon/internal/domain"
)

// Field rules for the two checkout data groups. Validation is pure: it
// returns an error map keyed by field name (first violated rule wins, one
// message per field) and never mutates the data.

var (
	// Danish letters on top of ASCII, plus space and hyphen
	nameRegex = regexp.MustCompile(`^[a-zA-ZæøåÆØÅ\s-]+$`)

	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Danish phone number: 8 digits, optional +45 prefix, optional pair grouping
	danishPhoneRegex = regexp.MustCompile(`^(\+45\s?)?(\d{2}\s?\d{2}\s?\d{2}\s?\d{2}|\d{8})$`)

	// Danish postal code (4 digits)
	danishPostalCodeRegex = regexp.MustCompile(`^\d{4}$`)

	// 13-19 characters of digits and embedded spaces; Luhn runs separately
	creditCardRegex = regexp.MustCompile(`^[\d\s]{13,19}$`)

	cvcRegex = regexp.MustCompile(`^\d{3,4}$`)

	// MM/YY with month 01-12
	expiryDateRegex = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
)

type rule struct {
	ok      func(string) bool
	message string
}

func required(message string) rule {
	return rule{func(v string) bool { return v != "" }, message}
}

func minRunes(n int, message string) rule {
	return rule{func(v string) bool { return utf8.RuneCountInString(v) >= n }, message}
}

func maxRunes(n int, message string) rule {
	return rule{func(v string) bool { return utf8.RuneCountInString(v) <= n }, message}
}

func matches(re *regexp.Regexp, message string) rule {
	return rule{re.MatchString, message}
}

// optionalMatches passes empty values; the rule only bites when a value is set.
func optionalMatches(re *regexp.Regexp, message string) rule {
	return rule{func(v string) bool { return v == "" || re.MatchString(v) }, message}
}

type fieldRules struct {
	field string
	value func(domain.CustomerInfo) string
	rules []rule
}

// customerRules is data-driven on purpose: new fields or rules are additive
// rows, not new code paths.
var customerRules = []fieldRules{
	{
		field: "firstName",
		value: func(c domain.CustomerInfo) string { return c.FirstName },
		rules: []rule{
			required("Fornavn er påkrævet"),
			minRunes(2, "Fornavn skal være mindst 2 tegn"),
			maxRunes(50, "Fornavn må ikke være længere end 50 tegn"),
			matches(nameRegex, "Fornavn må kun indeholde bogstaver, mellemrum og bindestreg"),
		},
	},
	{
		field: "lastName",
		value: func(c domain.CustomerInfo) string { return c.LastName },
		rules: []rule{
			required("Efternavn er påkrævet"),
			minRunes(2, "Efternavn skal være mindst 2 tegn"),
			maxRunes(50, "Efternavn må ikke være længere end 50 tegn"),
			matches(nameRegex, "Efternavn må kun indeholde bogstaver, mellemrum og bindestreg"),
		},
	},
	{
		field: "email",
		value: func(c domain.CustomerInfo) string { return c.Email },
		rules: []rule{
			required("E-mail er påkrævet"),
			matches(emailRegex, "Indtast en gyldig e-mail adresse"),
			maxRunes(100, "E-mail må ikke være længere end 100 tegn"),
		},
	},
	{
		field: "phone",
		value: func(c domain.CustomerInfo) string { return c.Phone },
		rules: []rule{
			optionalMatches(danishPhoneRegex, "Indtast et gyldigt dansk telefonnummer"),
		},
	},
	{
		field: "address",
		value: func(c domain.CustomerInfo) string { return c.Address },
		rules: []rule{
			required("Adresse er påkrævet"),
			minRunes(5, "Adresse skal være mindst 5 tegn"),
			maxRunes(100, "Adresse må ikke være længere end 100 tegn"),
		},
	},
	{
		field: "city",
		value: func(c domain.CustomerInfo) string { return c.City },
		rules: []rule{
			required("By er påkrævet"),
			minRunes(2, "By skal være mindst 2 tegn"),
			maxRunes(50, "By må ikke være længere end 50 tegn"),
			matches(nameRegex, "By må kun indeholde bogstaver, mellemrum og bindestreg"),
		},
	},
	{
		field: "postalCode",
		value: func(c domain.CustomerInfo) string { return c.PostalCode },
		rules: []rule{
			required("Postnummer er påkrævet"),
			matches(danishPostalCodeRegex, "Postnummer skal være 4 cifre"),
		},
	},
	{
		field: "country",
		value: func(c domain.CustomerInfo) string { return c.Country },
		rules: []rule{
			required("Land er påkrævet"),
		},
	},
}

// ValidateCustomerInfo checks the shipping data group. An empty map means valid.
func ValidateCustomerInfo(info domain.CustomerInfo) map[string]string {
	errs := make(map[string]string)
	for _, fr := range customerRules {
		v := fr.value(info)
		for _, r := range fr.rules {
			if !r.ok(v) {
				errs[fr.field] = r.message
				break
			}
		}
	}
	return errs
}

func IsCustomerInfoValid(info domain.CustomerInfo) bool {
	return len(ValidateCustomerInfo(info)) == 0
}

// ValidatePaymentInfo checks the payment data group against the current time.
func ValidatePaymentInfo(info domain.PaymentInfo) map[string]string {
	return validatePaymentInfoAt(info, time.Now())
}

func IsPaymentInfoValid(info domain.PaymentInfo) bool {
	return len(ValidatePaymentInfo(info)) == 0
}

func validatePaymentInfoAt(info domain.PaymentInfo, now time.Time) map[string]string {
	errs := make(map[string]string)

	if !info.AcceptTerms {
		errs["acceptTerms"] = "Du skal acceptere handelsbetingelserne for at fortsætte"
	}

	switch info.Method {
	case domain.PaymentMethodCard:
		validateCard(info, now, errs)
	case domain.PaymentMethodMobilePay, domain.PaymentMethodKlarna:
		// card fields are not required for these methods
	default:
		errs["method"] = "Vælg en betalingsmetode"
	}

	return errs
}

func validateCard(info domain.PaymentInfo, now time.Time, errs map[string]string) {
	cardNameRules := []rule{
		required("Navn på kort er påkrævet"),
		minRunes(2, "Navn skal være mindst 2 tegn"),
		maxRunes(100, "Navn må ikke være længere end 100 tegn"),
		matches(nameRegex, "Navn må kun indeholde bogstaver, mellemrum og bindestreg"),
	}
	for _, r := range cardNameRules {
		if !r.ok(info.CardName) {
			errs["cardName"] = r.message
			break
		}
	}

	switch {
	case info.CardNumber == "":
		errs["cardNumber"] = "Kortnummer er påkrævet"
	case !creditCardRegex.MatchString(info.CardNumber):
		errs["cardNumber"] = "Indtast et gyldigt kortnummer"
	case !luhnValid(strings.ReplaceAll(info.CardNumber, " ", "")):
		errs["cardNumber"] = "Indtast et gyldigt kortnummer"
	}

	switch {
	case info.ExpiryDate == "":
		errs["expiryDate"] = "Udløbsdato er påkrævet"
	case !expiryDateRegex.MatchString(info.ExpiryDate):
		errs["expiryDate"] = "Indtast udløbsdato i format MM/ÅÅ"
	case expired(info.ExpiryDate, now):
		errs["expiryDate"] = "Kortet er udløbet"
	}

	switch {
	case info.CVC == "":
		errs["cvc"] = "CVC er påkrævet"
	case !cvcRegex.MatchString(info.CVC):
		errs["cvc"] = "CVC skal være 3-4 cifre"
	}
}

// luhnValid runs the Luhn checksum over a digits-only card number: doubling
// every second digit from the right (subtracting 9 when the double exceeds
// 9), the total must be divisible by 10.
func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// expired reports whether an MM/YY value lies strictly before the current
// month, comparing against the last two digits of the current year.
func expired(value string, now time.Time) bool {
	parts := strings.SplitN(value, "/", 2)
	month := int(parts[0][0]-'0')*10 + int(parts[0][1]-'0')
	year := int(parts[1][0]-'0')*10 + int(parts[1][1]-'0')

	currentYear := now.Year() % 100
	currentMonth := int(now.Month())

	if year != currentYear {
		return year < currentYear
	}
	return month < currentMonth
}
