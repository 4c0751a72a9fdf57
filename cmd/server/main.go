package main

import "github.com/Skotchmaster/todo_backend/internal/cli"

func main() {
	cli.Execute()
}
