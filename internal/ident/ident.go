// Package ident generates the human-readable identifiers used across the
// reservation engine. All identifiers embed the generation date and a
// crypto/rand hex suffix; uniqueness is ultimately enforced by database
// constraints with a collision retry at the call site.
package ident

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	bookingPrefix = "KK"
	paymentPrefix = "PAY"
	ticketPrefix  = "TKT"
)

func randomHex(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// BookingReference returns "KK" + YYYYMMDD + 8 hex chars.
func BookingReference(now time.Time) (string, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	return bookingPrefix + now.Format("20060102") + suffix, nil
}

// PaymentReference returns "PAY" + YYYYMMDD + 8 hex chars.
func PaymentReference(now time.Time) (string, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	return paymentPrefix + now.Format("20060102") + suffix, nil
}

// TicketNumber returns "TKT" + YYYYMMDD + 12 hex chars.
func TicketNumber(now time.Time) (string, error) {
	suffix, err := randomHex(6)
	if err != nil {
		return "", err
	}
	return ticketPrefix + now.Format("20060102") + suffix, nil
}
