// SPDX-License-Identifier: MPL-2.0

// Package platform holds the operating system conventions plugcheck depends
// on: shared library file naming and the file names Windows reserves.
package platform
