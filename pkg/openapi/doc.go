// Package openapi exports form submission payloads as OpenAPI 3 schemas so
// clients can validate a response before posting it.
package openapi
