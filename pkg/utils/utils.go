package utils

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	NormalizePhoneNumber(raw string) (string, error)
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// NormalizePhoneNumber strips WhatsApp JID suffixes and formatting so the
// same customer always maps to the same session key.
func (u *utils) NormalizePhoneNumber(raw string) (string, error) {
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		raw = raw[:at]
	}

	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	number := b.String()
	if len(number) < 7 || len(number) > 15 {
		return "", errors.New("invalid phone number")
	}
	return number, nil
}
