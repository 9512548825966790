// Command micc compiles M source into MIL.
package main

import "micc/cmd"

func main() {
	cmd.Execute()
}
