// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by plugcheck tests: filesystem
// and environment setup that fails the test on error, a fake clock, and a
// limiter for tests that spawn worker processes.
//
// The simulated plugin world used by the probe, containment and validator
// tests lives in the plugintest subpackage.
package testutil
