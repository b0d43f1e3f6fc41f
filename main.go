package main

import "github.com/Mohsinsiddi/ethquery/cmd"

func main() {
	cmd.Execute()
}
