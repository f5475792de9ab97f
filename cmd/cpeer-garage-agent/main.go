package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/garage-agent/cmd/cpeer-garage-agent/app"
)

func main() {
	app.NewApp().Run()
}
