package main

import (
	"trackanalyzer/cmd"
)

func main() {
	cmd.Execute()
}
