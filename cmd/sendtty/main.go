package main

import "sendtty/cmd"

func main() {
	cmd.Execute()
}
