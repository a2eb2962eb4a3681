package model

import "math"

// Derived factor fields are nullable floats. Null is represented as NaN so
// rolling-window code stays allocation free; persisted artifacts must never
// contain NaN (warm-up rows are filtered, nulls in returns are zeroed).

// Null returns the null float value.
func Null() float64 { return math.NaN() }

// IsNull reports whether f is the null float value.
func IsNull(f float64) bool { return math.IsNaN(f) }
