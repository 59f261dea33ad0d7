// SPDX-License-Identifier: MPL-2.0

//go:build windows

package descriptor

// WideCharSize is the width of wchar_t: UTF-16 code units on Windows.
const WideCharSize = 2
