// Package vm implements the ember object model.
//
// This package contains:
//   - NaN-boxed value representation and the RBasic object header
//   - Shaped and table-backed instance variable storage
//   - Classes, modules, include classes and singleton classes
//   - Method resolution, the method_missing fallback and Method objects
//   - Kernel, Module, Class, Proc and the core value classes
package vm
