package main

import "github.com/frahmantamala/safety-hazards/cmd"

func main() {
	cmd.Execute()
}
