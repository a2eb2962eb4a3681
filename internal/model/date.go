package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Date is a calendar date stored as days since the Unix epoch.
// int32 keeps the parquet DATE logical type and sorts naturally.
type Date int32

// DateOf truncates t (UTC) to its calendar date.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Unix() / 86400)
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustDate is ParseDate for constants in tests and defaults.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

func (d Date) String() string {
	return d.Time().Format(dayLayout)
}

// AddDays returns the date n days later (negative n allowed).
func (d Date) AddDays(n int) Date { return d + Date(n) }

// Compact returns the date as "YYYYMMDD", the wire format of the kline API.
func (d Date) Compact() string {
	return d.Time().Format("20060102")
}

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
