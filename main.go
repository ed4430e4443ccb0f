package main

import "github.com/aignite/docqa-backend/cmd"

func main() {
	cmd.Execute()
}
