// Package core provides the fundamental types shared by the tick packages.
//
// This package contains:
//   - Action, the unit the scheduler fires, and FuncAction for plain closures
//   - Sentinel errors for argument validation
//   - ActionPanicError for recovered action failures
//
// Most users should import the root package github.com/jdziat/fixed-tick
// instead of this package directly.
package core
