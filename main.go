/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/racelink/cmd"

func main() {
	cmd.Execute()
}
