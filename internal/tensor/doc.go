// Package tensor defines the named numeric arrays returned by the inference service.
// It decodes flat or nested JSON values, keeps layer bundles in encounter order,
// and validates declared shapes before anything is rendered.
package tensor
