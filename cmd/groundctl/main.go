// Command groundctl runs the grounding pipeline against a database or
// spreadsheet connection and prints the resulting fragment sequence.
package main

import "github.com/sqlgrounder/sqlgrounder/cmd/groundctl/cmd"

func main() {
	cmd.Execute()
}
