package main

import "github.com/compudj/tracecompass/cmd"

func main() {
	cmd.Execute()
}
