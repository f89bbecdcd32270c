package main

import "github.com/lukman83/matcha-stock/cmd"

func main() {
	cmd.Execute()
}
