package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var months = func() map[string]int {
	m := make(map[string]int)
	for i, name := range []string{
		"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december",
	} {
		m[name] = i + 1
		m[name[:3]] = i + 1
	}
	m["sept"] = 9
	return m
}()

const monthAlt = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	monthDayYearRe = regexp.MustCompile(`\b(` + monthAlt + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dayMonthYearRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthAlt + `)\.?,?\s+(\d{4})\b`)
	numericDateRe  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
)

// formatDate renders a spoken or typed date as MM/DD/YYYY.
//
// Numeric dates are read month first. No locale is consulted, so 05/10/2006
// is May 10th whatever the speaker meant.
func formatDate(text string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(text))

	if m := monthDayYearRe.FindStringSubmatch(s); m != nil {
		return mmddyyyy(months[m[1]], m[2], m[3]), true
	}
	if m := dayMonthYearRe.FindStringSubmatch(s); m != nil {
		return mmddyyyy(months[m[2]], m[1], m[3]), true
	}
	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		return mmddyyyy(month, m[2], m[3]), true
	}
	return "", false
}

func mmddyyyy(month int, day, year string) string {
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%02d/%02d/%s", month, d, year)
}
