// Package validate checks scheduler arguments before any state is touched.
package validate
