// Package sanitizer normalizes caller input before validation and storage.
//
// All functions are idempotent and never fail: invalid input collapses to the
// empty string or is dropped from a slice.
package sanitizer
