package main

import "github.com/frahmantamala/support-ticketing/cmd"

func main() {
	cmd.Execute()
}
