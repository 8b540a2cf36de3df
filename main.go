package main

import "github.com/ValentinKolb/dlock/cmd"

func main() {
	cmd.Execute()
}
