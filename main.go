package main

import "github.com/gityap/gityap/cmd"

func main() {
	cmd.Execute()
}
