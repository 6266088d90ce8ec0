// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/harvestkit/harvest/cmd/harvest"

func main() {
	cmd.Execute()
}
