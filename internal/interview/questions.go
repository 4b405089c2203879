package interview

import (
	"fmt"
	"regexp"
	"strings"

	"fillvox/internal/form"
)

var labelWordRe = regexp.MustCompile(`[a-z0-9]+`)

// Question is the template question for a field. Dropdown and radio fields
// get their options read out.
func Question(f form.Field) string {
	q := templateQuestion(f)

	if k := f.Kind(); (k == form.TypeDropdown || k == form.TypeRadio) && len(f.Options) > 0 {
		q += " Your options are: " + listOptions(f.Options) + "."
	}
	return q
}

func templateQuestion(f form.Field) string {
	label := strings.Join(strings.Fields(f.Label), " ")
	lower := strings.ToLower(label)
	words := labelWordRe.FindAllString(lower, -1)
	has := func(w ...string) bool {
		for _, x := range words {
			for _, y := range w {
				if x == y {
					return true
				}
			}
		}
		return false
	}
	contains := func(s ...string) bool {
		for _, x := range s {
			if strings.Contains(lower, x) {
				return true
			}
		}
		return false
	}
	kind := f.Kind()

	switch {
	case has("name"):
		switch {
		case has("first", "given"):
			return "What is your first name?"
		case has("last", "family", "surname"):
			return "What is your last name?"
		case has("middle"):
			return "What is your middle name?"
		case lower == "name" || has("full"):
			return "What is your full name?"
		}

	case contains("birth") && has("month"):
		return "What month were you born in?"
	case contains("birth") && has("day") && !has("date"):
		return "What day of the month were you born?"
	case contains("birth") && has("year"):
		return "What year were you born?"
	case contains("birth"):
		return "What is your date of birth? Please say the month, day, and year."
	case kind == form.TypeDate || has("date"):
		return fmt.Sprintf("What is the %s? Please say the month, day, and year.", lower)

	case contains("address") && (contains("line 2", "line2") || has("apartment", "apt", "suite", "unit")):
		return "What is your apartment, suite, or unit number?"
	case contains("address") && !contains("email"):
		return "What is your street address?"
	case kind == form.TypeEmail || contains("email", "e-mail"):
		return "What is your email address?"
	case kind == form.TypeTel || kind == form.TypePhone || has("phone", "mobile", "cell"):
		return "What is your phone number?"
	case has("city", "town"):
		return "What city do you live in?"
	case has("state", "province"):
		return "What state or province do you live in?"
	case has("zip", "postal", "postcode"):
		return "What is your zip or postal code?"
	case kind == form.TypeNumber || has("number"):
		return fmt.Sprintf("What is your %s? Please say the number.", lower)
	}

	if lower == "" {
		return "What should I put in the next field?"
	}
	return fmt.Sprintf("What is your %s?", lower)
}

func listOptions(opts []string) string {
	switch len(opts) {
	case 1:
		return opts[0]
	case 2:
		return opts[0] + " or " + opts[1]
	}
	return strings.Join(opts[:len(opts)-1], ", ") + ", or " + opts[len(opts)-1]
}

func welcomeMessage(total int) string {
	switch total {
	case 0:
		return "Hello! This form has nothing for me to ask. We're already done."
	case 1:
		return "Hello! I'll help you fill out this form. I need to ask you 1 question. Let's begin!"
	}
	return fmt.Sprintf("Hello! I'll help you fill out this form. I need to ask you %d questions. Let's begin!", total)
}

// confirmMessage names the captured value. When formatting changed what was
// heard, both are read back.
func confirmMessage(raw, value string, last bool) string {
	var b strings.Builder
	if strings.TrimSpace(raw) != value {
		fmt.Fprintf(&b, "Got it! You said: %s. I've formatted it as: %s.", strings.TrimSpace(raw), value)
		if last {
			b.WriteString(" That's all the information I need. Thank you!")
		} else {
			b.WriteString(" Let's move to the next question.")
		}
		return b.String()
	}
	if last {
		return fmt.Sprintf("Perfect! I got %s. That's all the information I need. Thank you!", value)
	}
	return fmt.Sprintf("Thank you! I got %s. Let's move to the next question.", value)
}

func skipMessage(last bool) string {
	if last {
		return "I didn't hear anything. That's all the questions I have. Thank you!"
	}
	return "I didn't hear anything. Let's move to the next question."
}

const stopMessage = "Form filling stopped. Thank you for using fillvox!"

// Summary renders captured answers in question order. Unanswered fields are
// marked as skipped.
func Summary(fields []form.Field, answers map[string]CapturedAnswer, outcome State) string {
	var b strings.Builder

	filled := 0
	for _, f := range fields {
		if _, ok := answers[f.Label]; ok {
			filled++
		}
	}

	if outcome == Cancelled {
		fmt.Fprintf(&b, "Form filling stopped with %d of %d fields filled.\n", filled, len(fields))
	} else {
		fmt.Fprintf(&b, "Form complete: %d of %d fields filled.\n", filled, len(fields))
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Label] {
			continue
		}
		seen[f.Label] = true
		if a, ok := answers[f.Label]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", f.Label, a.NormalizedValue)
		} else {
			fmt.Fprintf(&b, "  %s: (skipped)\n", f.Label)
		}
	}
	return b.String()
}
