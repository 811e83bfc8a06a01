// Package submission checks responses submitted for a form. Text values go
// through the field's validation rule; every other type gets a built-in check.
// Validation rules fail open, so a broken custom pattern never blocks a
// response.
package submission
