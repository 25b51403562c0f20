package main

import "github.com/lexcodex/orchestrate/app/cmd"

func main() {
	cmd.Execute()
}
