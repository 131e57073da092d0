package main

import "github.com/VytasKer/Fintegrate/cmd"

func main() {
	cmd.Execute()
}
