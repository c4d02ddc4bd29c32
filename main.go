package main

import "jeeves/cmd"

func main() {
	cmd.Execute()
}
