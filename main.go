package main

import "aqualess/internal/app"

func main() {
	app.Execute()
}
