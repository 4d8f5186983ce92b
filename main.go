package main

import "spinlog/cmd"

func main() {
	cmd.Execute()
}
