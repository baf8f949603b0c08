// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/invowk/promptscan/cmd/promptscan"

func main() {
	cmd.Execute()
}
