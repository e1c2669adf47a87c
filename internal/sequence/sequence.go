// Package sequence issues booking references from an atomic counter.
// Counters live outside the booking transaction: a rolled back booking
// leaves a gap in the numbering, never a duplicate.
package sequence

import (
    "context"
    "fmt"
    "strings"
    "time"
)

// Generator returns the next value of the counter named key.  Values are
// strictly increasing per key and never reused.
type Generator interface {
    Next(ctx context.Context, key string) (int64, error)
}

// Referencer formats counter values as PREFIX/YYYY/NNNN.  The counter
// restarts every calendar year because the year is part of its key.
type Referencer struct {
    gen     Generator
    prefix  string
    padding int
}

// NewReferencer builds a Referencer.  An empty prefix falls back to BOOK
// and a padding below 1 to 4 digits.
func NewReferencer(gen Generator, prefix string, padding int) *Referencer {
    prefix = strings.ToUpper(strings.TrimSpace(prefix))
    if prefix == "" {
        prefix = "BOOK"
    }
    if padding < 1 {
        padding = 4
    }
    return &Referencer{gen: gen, prefix: prefix, padding: padding}
}

// Next issues the reference for a booking created at.
func (r *Referencer) Next(ctx context.Context, at time.Time) (string, error) {
    year := at.UTC().Year()
    key := fmt.Sprintf("booking.%s.%d", r.prefix, year)
    n, err := r.gen.Next(ctx, key)
    if err != nil {
        return "", fmt.Errorf("next %s: %w", key, err)
    }
    return fmt.Sprintf("%s/%d/%0*d", r.prefix, year, r.padding, n), nil
}
