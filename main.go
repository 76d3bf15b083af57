package main

import "github.com/gaurav-prasanna/structmark/cmd"

func main() {
	cmd.Execute()
}
