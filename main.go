// SPDX-License-Identifier: MPL-2.0

// Command plugcheck validates native plugin modules.
package main

import "github.com/plugcheck/plugcheck/cmd/plugcheck"

func main() {
	cmd.Execute()
}
