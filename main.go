package main

import "github.com/frahmantamala/integration-hub/cmd"

func main() {
	cmd.Execute()
}
