package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "smsgate/internal/errors"
)

// ParseMessage splits inbound SMS text at the first whitespace character into
// an alias and a body. One leading '@' is stripped from the alias. The body
// is returned verbatim.
func ParseMessage(text string) (alias, body string, err error) {
	if text == "" {
		return "", "", apperrors.NewMalformedInputError("empty message")
	}

	idx := strings.IndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return "", "", apperrors.NewMalformedInputError("no separator between target and message")
	}

	_, sepWidth := utf8.DecodeRuneInString(text[idx:])
	alias = strings.TrimPrefix(text[:idx], "@")
	body = text[idx+sepWidth:]

	if alias == "" {
		return "", "", apperrors.NewMalformedInputError("empty target")
	}
	return alias, body, nil
}
