// Package sanitizer normalizes free-form profile and booking input before
// validation and storage.
//
// All functions are idempotent and never return errors: invalid input comes
// back as an empty string.
package sanitizer
