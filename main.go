package main

import "github.com/acolhe/clinicd_backend/cmd"

func main() {
	cmd.Execute()
}
