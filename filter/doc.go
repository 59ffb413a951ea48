// Package filter implements key/value row predicates over delimited rows.
//
// A filter key is logical ("state", "measure"); Resolve maps it onto the
// physical columns of a header through case variants, snake/camel
// conversions and a synonym table, matching case-insensitive substrings in
// both directions. Extract builds a Map from a free-text question.
package filter
