package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"fillvox/internal/form"
)

var (
	dateField  = form.Field{Label: "Date of Birth", Type: form.TypeDate}
	phoneField = form.Field{Label: "Phone Number", Type: form.TypeTel}
	zipField   = form.Field{Label: "Zip Code", Type: form.TypeText}
	nameField  = form.Field{Label: "Full Name", Type: form.TypeText}
	emailField = form.Field{Label: "Email", Type: form.TypeEmail}
)

func TestNormalize_Examples(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field form.Field
		want  string
	}{
		{"month name date", "October 5 2006", dateField, "10/05/2006"},
		{"abbreviated month", "oct. 5th, 2006", dateField, "10/05/2006"},
		{"day month year", "the 3rd of March 1990", dateField, "03/03/1990"},
		{"numeric date", "10/5/2006", dateField, "10/05/2006"},
		{"dashed date", "1-2-2000", dateField, "01/02/2000"},
		{"unparseable date", "  sometime last spring ", dateField, "sometime last spring"},
		{"phone 10 digits", "5551234567", phoneField, "(555) 123-4567"},
		{"phone 11 digits", "15551234567", phoneField, "(555) 123-4567"},
		{"phone spoken", "five five five one two three four five six seven", phoneField, "(555) 123-4567"},
		{"phone too short", "555 1234", phoneField, "555 1234"},
		{"zip 5", "90210", zipField, "90210"},
		{"zip 9", "902101234", zipField, "90210-1234"},
		{"zip spoken", "nine zero two one zero", zipField, "90210"},
		{"zip bad", "9021", zipField, "9021"},
		{"name", "john smith", nameField, "John Smith"},
		{"name shouting", "  JANE   DOE ", nameField, "Jane Doe"},
		{"address", "123 main STREET springfield", form.Field{Label: "Street Address"}, "123 Main Street Springfield"},
		{"email", "  Jane@Example.COM ", emailField, "jane@example.com"},
		{"email not repaired", "jane at example dot com", emailField, "jane at example dot com"},
		{"email by label", "A@B.CO", form.Field{Label: "E-mail Address"}, "a@b.co"},
		{"number", "I have two kids", form.Field{Label: "Dependents", Type: form.TypeNumber}, "2"},
		{"number compound", "twenty five", form.Field{Label: "Age", Type: form.TypeNumber}, "25"},
		{"age by label", "thirty two", form.Field{Label: "Age", Type: form.TypeText}, "32"},
		{"age word only", "about seventy", form.Field{Label: "Your age (years)"}, "70"},
		{"number fallback", "none", form.Field{Label: "Dependents", Type: form.TypeNumber}, "none"},
		{"birth year", "nineteen ninety", form.Field{Label: "Birth Year", Type: form.TypeNumber}, "1990"},
		{"birth year as hundreds", "nineteen hundred ninety", form.Field{Label: "Birth Year"}, "1990"},
		{"birthday spoken day", "march five 1990", form.Field{Label: "Birthday"}, "03/05/1990"},
		{"option", "I'd say female", form.Field{Label: "Gender", Type: form.TypeRadio, Options: []string{"Male", "Female", "Other"}}, "Female"},
		{"option ambiguous", "male or female", form.Field{Label: "Sex", Type: form.TypeRadio, Options: []string{"Male", "Femme"}}, "Male"},
		{"option none", "prefer not", form.Field{Label: "Gender", Type: form.TypeDropdown, Options: []string{"Male", "Female"}}, "prefer not"},
		{"text default", "  Blue  ", form.Field{Label: "Favourite colour"}, "Blue"},
		{"empty", "   ", nameField, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw, tt.field))
		})
	}
}

func TestClassify_Precedence(t *testing.T) {
	n := New(Options{})
	tests := []struct {
		field form.Field
		want  Rule
	}{
		{dateField, RuleDate},
		{form.Field{Label: "Birth Year", Type: form.TypeNumber}, RuleNumber},
		{form.Field{Label: "Birth Month"}, RuleText},
		{form.Field{Label: "Email Address"}, RuleEmail},
		{form.Field{Label: "Mobile"}, RulePhone},
		{form.Field{Label: "Home Address"}, RuleAddress},
		{form.Field{Label: "Postal code"}, RuleZip},
		{form.Field{Label: "Last Name"}, RuleName},
		{form.Field{Label: "Insurance Policy Number"}, RuleIdentifier},
		{form.Field{Label: "Quantity", Type: "NUMBER"}, RuleNumber},
		{form.Field{Label: "Notes", Type: form.TypeTextarea}, RuleText},
		{form.Field{Label: "Colour", Type: form.TypeDropdown}, RuleText},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Classify(tt.field), tt.field.Label)
	}
}

func TestNormalize_PolicyNumberRouting(t *testing.T) {
	policy := form.Field{Label: "Insurance Policy Number"}

	assert.Equal(t, "1234567890", New(Options{}).Normalize("123 456 7890", policy))
	assert.Equal(t, "AB-12 C", New(Options{}).Normalize("AB-12 C", policy))

	legacy := New(Options{LegacyNumberRouting: true})
	assert.Equal(t, RulePhone, legacy.Classify(policy))
	assert.Equal(t, "(123) 456-7890", legacy.Normalize("123 456 7890", policy))
}

func TestWordsToDigits(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"twenty five", "25"},
		{"twenty-five", "25"},
		{"two hundred", "200"},
		{"two hundred fifty", "250"},
		{"two thousand five", "2005"},
		{"two thousand five hundred", "2500"},
		{"three million", "3000000"},
		{"four billion", "4000000000"},
		{"hundred", "100"},
		{"nineteen ninety", "19 90"},
		{"someone has one", "someone has 1"},
		{"Seventeen", "17"},
		{"five five five", "5 5 5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WordsToDigits(tt.in), tt.in)
	}
}

func TestWordsToDigits_LeavesOverflowAlone(t *testing.T) {
	out := WordsToDigits("99999999999 billion")
	assert.True(t, strings.HasPrefix(out, "99999999999 "), out)
	assert.NotContains(t, out, "7766279630452241920")

	out = WordsToDigits("9223372036854775 thousand 999")
	assert.True(t, strings.HasPrefix(out, "9223372036854775 "), out)
}
