package main

import "afvalalert/cmd"

func main() {
	cmd.Execute()
}
