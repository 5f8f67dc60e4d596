// Package errors provides classified error primitives used across formulary.
//
// A ClassifiedError carries a category (config, extract, render, filesystem, ...),
// a severity and a retry hint alongside the message and cause. Build stages return
// classified errors for fatal conditions so the CLI can map them to exit codes and
// the preview server can map them to HTTP status codes.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryRender, "required template missing").
//		Fatal().
//		WithContext("template", "item.tmpl").
//		WithCause(statErr).
//		Build()
package errors
