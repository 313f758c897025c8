package main

import "apitester/cmd"

func main() {
	cmd.Execute()
}
