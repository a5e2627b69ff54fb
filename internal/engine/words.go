package engine

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxWordLength = 30
	MaxNameLength = 20
)

var wordPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidateWord checks a raw submission and returns it trimmed. Case is kept
// as submitted. Rules are checked in order and the first failure wins.
func ValidateWord(raw string) (string, error) {
	word := strings.TrimSpace(raw)
	if word == "" {
		return "", ErrEmptyWord
	}
	if utf8.RuneCountInString(word) > MaxWordLength {
		return "", ErrWordTooLong
	}
	if strings.IndexFunc(word, unicode.IsSpace) >= 0 {
		return "", ErrMultipleWords
	}
	if !wordPattern.MatchString(word) {
		return "", ErrInvalidCharacters
	}
	return word, nil
}

func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}
