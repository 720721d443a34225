package machine

import "strconv"

// formatNumber renders a Number the way the language's str() native and
// Add's string-coercion path both need to: integral values print without a
// trailing decimal point (so list index keys round-trip through
// numberKeyString, and `str(3.0)` reads "3" rather than "3e+00"), other
// values use the shortest round-tripping decimal form.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Stringify renders v the way Add's mixed-operand concatenation and the
// `str` native both need: every Value already implements String(), so
// this simply exposes that method under a name that reads naturally at
// call sites outside the machine package.
func Stringify(v Value) string { return v.String() }

// numberKeyString converts a Number used as a GetHT/CreateHT key into the
// same string form the compiler's list-literal emission uses for its
// integer indices (spec.md §4.2: "emit the string key for its index
// (0,1,…)"), so that `xs[1]` (a runtime Number key) addresses the same
// HashTable entry as the compile-time string key "1" used to build xs.
func numberKeyString(f float64) string {
	return formatNumber(f)
}
