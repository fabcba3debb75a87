package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

var nameFolder = cases.Fold()

// CanonicalName collapses runs of whitespace to single spaces, trims,
// and case-folds the result. Unique-name checks on items and stores
// compare canonical forms, so " Widget " and "widget" collide.
func CanonicalName(name string) string {
	return nameFolder.String(strings.Join(strings.Fields(name), " "))
}
