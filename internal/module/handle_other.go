// SPDX-License-Identifier: MPL-2.0

//go:build !(darwin || freebsd || linux || windows)

package module

import (
	"errors"
	"runtime"
)

type nativeLoader struct{}

func (nativeLoader) Load(path string) (Handle, error) {
	return nil, &NotFoundError{Path: path, Err: errors.New("dynamic loading is not supported on " + runtime.GOOS)}
}
