// Package mention resolves the placeholder keys the messaging platform
// substitutes into message text (e.g. "@_user_1") back into display names.
package mention

import "strings"

// Mention maps one placeholder key to the mentioned user.
type Mention struct {
	Key    string
	Name   string
	OpenID string
}

// Resolve replaces every mention key in text with "@Name" and trims the
// result. Keys are matched as literal text: platform keys can contain
// characters that are meaningful to pattern matchers. A missing mention
// list returns text unchanged.
func Resolve(text string, mentions []Mention) string {
	if len(mentions) == 0 {
		return text
	}

	for _, m := range mentions {
		if m.Key == "" {
			continue
		}

		text = strings.ReplaceAll(text, m.Key, "@"+m.Name)
	}

	return strings.TrimSpace(text)
}
