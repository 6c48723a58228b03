package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MinTicketNumberWidth keeps small raffles on the familiar three digit format.
const MinTicketNumberWidth = 3

// TicketNumber is the canonical zero-padded form of a ticket number within a
// raffle, e.g. "007" for a raffle of up to 1000 tickets.
type TicketNumber string

// TicketNumberWidth returns the number of digits used for a raffle with the
// given number of tickets.
func TicketNumberWidth(totalTickets int) int {
	if totalTickets <= 1 {
		return MinTicketNumberWidth
	}
	w := len(strconv.Itoa(totalTickets - 1))
	if w < MinTicketNumberWidth {
		return MinTicketNumberWidth
	}
	return w
}

// FormatTicketNumber pads n with zeros to width digits.
func FormatTicketNumber(n, width int) TicketNumber {
	return TicketNumber(fmt.Sprintf("%0*d", width, n))
}

// Int returns the numeric value of the ticket number.
func (n TicketNumber) Int() (int, error) {
	return strconv.Atoi(string(n))
}

// ParseTicketNumber normalizes raw input into a TicketNumber for a raffle of
// totalTickets. Unpadded input ("7") is accepted and padded.
func ParseTicketNumber(raw string, totalTickets int) (TicketNumber, error) {
	raw = strings.TrimSpace(raw)
	width := TicketNumberWidth(totalTickets)
	if raw == "" || len(raw) > width {
		return "", NewValidationError("selectedNumbers", fmt.Sprintf("%q is not a %d digit ticket number", raw, width))
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return "", NewValidationError("selectedNumbers", fmt.Sprintf("%q is not numeric", raw))
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return "", NewValidationError("selectedNumbers", fmt.Sprintf("%q is not numeric", raw))
	}
	if n >= totalTickets {
		return "", NewValidationError("selectedNumbers", fmt.Sprintf("%q is out of range 0-%d", raw, totalTickets-1))
	}
	return FormatTicketNumber(n, width), nil
}

// NormalizeTicketNumbers parses every raw number, drops duplicates and keeps
// the first-seen order.
func NormalizeTicketNumbers(raw []string, totalTickets int) ([]TicketNumber, error) {
	if len(raw) == 0 {
		return nil, NewValidationError("selectedNumbers", "at least one ticket number is required")
	}
	seen := make(map[TicketNumber]struct{}, len(raw))
	out := make([]TicketNumber, 0, len(raw))
	for _, r := range raw {
		n, err := ParseTicketNumber(r, totalTickets)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

// AllTicketNumbers returns every number of a raffle in ascending order.
func AllTicketNumbers(totalTickets int) []TicketNumber {
	width := TicketNumberWidth(totalTickets)
	out := make([]TicketNumber, totalTickets)
	for i := 0; i < totalTickets; i++ {
		out[i] = FormatTicketNumber(i, width)
	}
	return out
}

// TicketNumberStrings converts numbers back to plain strings for payloads.
func TicketNumberStrings(numbers []TicketNumber) []string {
	out := make([]string, len(numbers))
	for i, n := range numbers {
		out[i] = string(n)
	}
	return out
}
