package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/shuttlebridge/cmd/shuttlebridge/app"
)

func main() {
	app.NewApp().Run()
}
