package main

import "ping_backend/internal/app"

func main() {
	app.Run()
}
