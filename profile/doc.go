// Package profile computes per-column statistics and sample quality scores
// over a materialized set of rows.
//
// Type inference tests, in order: numeric (more than 80% of non-null values
// parse as numbers), datetime (more than 80% parse as dates), boolean (a
// majority of boolean tokens), categorical (distinct/non-null below 0.1),
// and falls back to text.
package profile
