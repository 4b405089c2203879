// Package normalize turns a raw spoken transcript into the canonical value
// for a form field. It never fails: when no rule recognises the input the
// trimmed transcript is returned as is.
package normalize

import (
	log "log/slog"
	"regexp"
	"strings"

	"fillvox/internal/form"
)

// Rule names the formatter a field is routed to.
type Rule string

const (
	RuleDate       Rule = "date"
	RuleEmail      Rule = "email"
	RulePhone      Rule = "phone"
	RuleOption     Rule = "option"
	RuleAddress    Rule = "address"
	RuleZip        Rule = "zip"
	RuleName       Rule = "name"
	RuleNumber     Rule = "number"
	RuleIdentifier Rule = "identifier"
	RuleText       Rule = "text"
)

type Options struct {
	// LegacyNumberRouting sends every label containing "number" to the
	// phone formatter, so "Insurance Policy Number" is formatted like a
	// phone number when it happens to have ten digits.
	LegacyNumberRouting bool
}

type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

var std = New(Options{})

// Normalize uses the default routing.
func Normalize(raw string, f form.Field) string {
	return std.Normalize(raw, f)
}

// Classify reports which formatter f is routed to, in priority order.
// Label keywords win over the declared type because extracted schemas often
// declare "text" for dates, zips and addresses.
func (n *Normalizer) Classify(f form.Field) Rule {
	kind := f.Kind()
	label := strings.ToLower(f.Label)
	words := labelWords(label)

	switch {
	case kind == form.TypeDate || hasAny(label, "date", "birth"):
		// "Birth Year" is a number, not a date
		if kind != form.TypeDate && hasWord(words, "year", "month", "day") {
			break
		}
		return RuleDate
	}

	switch {
	case kind == form.TypeEmail || hasAny(label, "email", "e-mail"):
		return RuleEmail
	case kind == form.TypeTel || kind == form.TypePhone || hasAny(label, "phone", "mobile"):
		return RulePhone
	case n.opts.LegacyNumberRouting && hasAny(label, "number"):
		return RulePhone
	case (kind == form.TypeDropdown || kind == form.TypeRadio) && len(f.Options) > 0:
		return RuleOption
	case hasAny(label, "address"):
		return RuleAddress
	case hasAny(label, "zip", "postal"):
		return RuleZip
	case hasAny(label, "name"):
		return RuleName
	case kind == form.TypeNumber || hasWord(words, "year", "day", "age"):
		return RuleNumber
	case hasAny(label, "number"):
		return RuleIdentifier
	default:
		return RuleText
	}
}

// numeric reports whether spoken numbers are rewritten as digits before the
// field's formatter runs. It covers every label Classify sends to RuleNumber.
func (n *Normalizer) numeric(f form.Field) bool {
	kind := f.Kind()
	if kind == form.TypeNumber || kind == form.TypeTel || kind == form.TypePhone {
		return true
	}
	label := strings.ToLower(f.Label)
	return hasAny(label, "number", "year", "day", "phone", "zip", "postal") ||
		hasWord(labelWords(label), "age")
}

// Normalize formats raw for f. It always returns a string.
func (n *Normalizer) Normalize(raw string, f form.Field) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	text := trimmed
	if n.numeric(f) {
		text = strings.TrimSpace(WordsToDigits(text))
	}

	rule := n.Classify(f)
	out := apply(rule, text, trimmed, f)

	log.Debug("Normalized", "field", f.Label, "rule", rule, "raw", trimmed, "value", out)
	return out
}

func apply(rule Rule, text, trimmed string, f form.Field) string {
	switch rule {
	case RuleDate:
		if v, ok := formatDate(text); ok {
			return v
		}
		return trimmed

	case RuleEmail:
		// advisory only: "jane at example dot com" is kept as spoken
		return strings.ToLower(trimmed)

	case RulePhone:
		d := digitsOnly(text)
		switch {
		case len(d) == 10:
			return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:]
		case len(d) == 11 && d[0] == '1':
			return "(" + d[1:4] + ") " + d[4:7] + "-" + d[7:]
		default:
			return trimmed
		}

	case RuleOption:
		if opt, ok := matchOption(text, f.Options); ok {
			return opt
		}
		return trimmed

	case RuleAddress, RuleName:
		return titleWords(trimmed)

	case RuleZip:
		d := digitsOnly(text)
		switch len(d) {
		case 5:
			return d
		case 9:
			return d[:5] + "-" + d[5:]
		default:
			return trimmed
		}

	case RuleNumber:
		if d := digitsOnly(text); d != "" {
			return d
		}
		return trimmed

	case RuleIdentifier:
		if identDigitsRe.MatchString(text) {
			return digitsOnly(text)
		}
		return trimmed

	default:
		return trimmed
	}
}

var identDigitsRe = regexp.MustCompile(`^[\d\s-]*\d[\d\s-]*$`)

// titleWords capitalises each whitespace-separated token and lower-cases the
// rest of it.
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// matchOption finds the single option named in text. When several match the
// longest wins; a tie is ambiguous.
func matchOption(text string, options []string) (string, bool) {
	lower := strings.ToLower(text)
	best, bestLen, tie := "", 0, false
	for _, opt := range options {
		o := strings.ToLower(strings.TrimSpace(opt))
		if o == "" {
			continue
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(o) + `\b`)
		if err != nil || !re.MatchString(lower) {
			continue
		}
		switch {
		case len(o) > bestLen:
			best, bestLen, tie = opt, len(o), false
		case len(o) == bestLen:
			tie = true
		}
	}
	if best == "" || tie {
		return "", false
	}
	return best, true
}

var wordSplitRe = regexp.MustCompile(`[^a-z0-9]+`)

func labelWords(label string) []string {
	return wordSplitRe.Split(label, -1)
}

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasWord(words []string, want ...string) bool {
	for _, w := range words {
		for _, x := range want {
			if w == x {
				return true
			}
		}
	}
	return false
}
