// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. The issue catalog holds one Markdown page per failure
// kind and per configuration problem; `plugcheck explain` renders them with
// glamour.
package issue
