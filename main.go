package main

import "github.com/packagewjx/failure-insight/cmd"

func main() {
	cmd.Execute()
}
