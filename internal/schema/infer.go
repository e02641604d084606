// Package schema holds the pure building blocks of schema evolution: value
// type inference, type promotion, column name normalization and the batch
// planner that turns extracted records into schema changes.
package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"docschema/internal/domain"
)

var (
	integerPattern = regexp.MustCompile(`^-?[0-9]+$`)
	floatPattern   = regexp.MustCompile(`^-?(?:[0-9]+\.[0-9]*|\.[0-9]+)$`)
)

// Infer classifies a raw scalar. Only plain base-10 integers and decimals
// with a single point count as numbers; thousands separators, currency
// symbols and exponents make a value text.
func Infer(raw string) domain.ColumnType {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return domain.TypeNull
	case integerPattern.MatchString(v):
		return domain.TypeInteger
	case floatPattern.MatchString(v):
		return domain.TypeFloat
	default:
		return domain.TypeText
	}
}

// Promote returns the wider of a and b along integer < float < text.
// TypeNull is the identity.
func Promote(a, b domain.ColumnType) domain.ColumnType {
	if b.Wider(a) {
		return b
	}
	return a
}

// InferAll folds Infer over values with Promote.
func InferAll(values []string) domain.ColumnType {
	t := domain.TypeNull
	for _, v := range values {
		t = Promote(t, Infer(v))
		if t == domain.TypeText {
			break
		}
	}
	return t
}

// Coerce converts raw into the Go value stored for a column of type t.
// Empty values become nil.
func Coerce(raw string, t domain.ColumnType) (any, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	if Infer(v).Wider(t) {
		return nil, fmt.Errorf("%w: %s value in %s column", domain.ErrRowCoercion, Infer(v), t)
	}
	switch t {
	case domain.TypeInteger:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRowCoercion, err)
		}
		return n, nil
	case domain.TypeFloat:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRowCoercion, err)
		}
		return f, nil
	case domain.TypeText:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unknown column type %q", domain.ErrRowCoercion, t)
	}
}
