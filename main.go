package main

import "github.com/ridoystarlord/ormato/cmd"

func main() {
	cmd.Execute()
}
