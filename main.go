package main

import "github.com/lukman83/beast-antidetect/cmd"

func main() {
	cmd.Execute()
}
