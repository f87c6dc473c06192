// Package entities tags email addresses, phone numbers, and dates in
// extracted document text.
package entities

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\+?\d{1,3}[\s.-]?\(?\d{3,4}\)?[\s.-]?\d{3,4}(?:[\s.-]?\d{2,9})?\b`)
	datePattern  = regexp.MustCompile(`\b(?:\d{2}[/-]\d{2}[/-]\d{4}|\d{4}[-.]\d{2}[-.]\d{2})\b`)
)

// Extract returns a map from entity category (emails, phones, dates) to
// a deduplicated, first-seen-ordered list of matches. Categories with
// no matches are omitted. Emails are matched case-insensitively and
// reported lowercased.
//
// Phones require more than one distinct match to be reported: a single
// phone-shaped substring is usually a page number or an identifier, not
// a phone number. Emails and dates require only one.
//
// Extract is total: it never fails, and returns an empty map for blank
// input.
func Extract(content string) map[string][]string {
	result := make(map[string][]string)
	if strings.TrimSpace(content) == "" {
		return result
	}

	emails := dedupe(emailPattern.FindAllString(content, -1), strings.ToLower)
	if len(emails) > 0 {
		result["emails"] = emails
	}

	phones := dedupe(phonePattern.FindAllString(content, -1), nil)
	if len(phones) > 1 {
		result["phones"] = phones
	}

	dates := dedupe(datePattern.FindAllString(content, -1), nil)
	if len(dates) > 0 {
		result["dates"] = dates
	}

	return result
}

// dedupe removes repeated matches while keeping first-seen order,
// applying transform to each match when provided.
func dedupe(matches []string, transform func(string) string) []string {
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if transform != nil {
			m = transform(m)
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
