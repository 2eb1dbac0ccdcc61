// SPDX-License-Identifier: MPL-2.0

// Command spenv composes layered runtime environments from .spenv.yaml files.
package main

import cmd "github.com/spkenv/spenv/cmd/spenv"

func main() {
	cmd.Execute()
}
