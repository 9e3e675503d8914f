// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/svchost/cmd/svchost"

func main() {
	cmd.Execute()
}
