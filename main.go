package main

import "github.com/Norgate-AV/ratbuild/cmd"

func main() {
	cmd.Execute()
}
