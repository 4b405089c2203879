package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19, "twenty": 20, "thirty": 30,
	"forty": 40, "fifty": 50, "sixty": 60, "seventy": 70,
	"eighty": 80, "ninety": 90,
}

var multipliers = map[string]int64{
	"hundred":  100,
	"thousand": 1_000,
	"million":  1_000_000,
	"billion":  1_000_000_000,
}

var (
	// whole words only, so "someone" keeps its "one"
	numberWordRe = regexp.MustCompile(`\b(zero|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety)\b`)
	compoundRe   = regexp.MustCompile(`\b([2-9]0)(?:\s+|-)([1-9])\b`)
	hundredRe    = regexp.MustCompile(`\b(\d+)\s+hundred(?:\s+(?:and\s+)?(\d{1,2})\b)?`)
	thousandRe   = regexp.MustCompile(`\b(\d+)\s+thousand(?:\s+(?:and\s+)?(\d{1,3})\b)?`)
	millionRe    = regexp.MustCompile(`\b(\d+)\s+million\b`)
	billionRe    = regexp.MustCompile(`\b(\d+)\s+billion\b`)
	bareMultRe   = regexp.MustCompile(`\b(hundred|thousand|million|billion)\b`)
)

// WordsToDigits rewrites spoken numbers as digits: "twenty five" -> "25",
// "two thousand five" -> "2005", "nineteen hundred ninety" -> "1990".
//
// This is a lexical pass, not a number parser. Sequences such as
// "nineteen ninety" come out as "19 90"; callers that want a single number
// strip the separators themselves. The result is lower-cased.
func WordsToDigits(text string) string {
	s := strings.ToLower(text)

	s = numberWordRe.ReplaceAllStringFunc(s, func(w string) string {
		return strconv.Itoa(numberWords[w])
	})

	s = compoundRe.ReplaceAllStringFunc(s, func(m string) string {
		g := compoundRe.FindStringSubmatch(m)
		tens, _ := strconv.Atoi(g[1])
		unit, _ := strconv.Atoi(g[2])
		return strconv.Itoa(tens + unit)
	})

	s = scale(s, hundredRe, 100)
	s = scale(s, thousandRe, 1_000)
	s = scale(s, millionRe, 1_000_000)
	s = scale(s, billionRe, 1_000_000_000)

	s = bareMultRe.ReplaceAllStringFunc(s, func(w string) string {
		return strconv.FormatInt(multipliers[w], 10)
	})

	return s
}

func scale(s string, re *regexp.Regexp, by int64) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		g := re.FindStringSubmatch(m)
		n, err := strconv.ParseInt(g[1], 10, 64)
		if err != nil || n > math.MaxInt64/by {
			return m
		}
		total := n * by
		if len(g) > 2 && g[2] != "" {
			add, err := strconv.ParseInt(g[2], 10, 64)
			if err != nil || add > math.MaxInt64-total {
				return m
			}
			total += add
		}
		return strconv.FormatInt(total, 10)
	})
}

var nonDigitRe = regexp.MustCompile(`\D`)

func digitsOnly(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}
