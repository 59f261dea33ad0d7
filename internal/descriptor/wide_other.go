// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package descriptor

// WideCharSize is the width of wchar_t: UTF-32 code points outside Windows.
const WideCharSize = 4
