package main

import "github.com/frahmantamala/cost-tracker/cmd"

func main() {
	cmd.Execute()
}
