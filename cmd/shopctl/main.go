package main

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"

	"github.com/jrsteele09/go-shop-client/cmd/shopctl/cmd"
	"github.com/jrsteele09/go-shop-client/internal/config"
)

func main() {
	displayAppname(config.New().GetAppName())
	cmd.Execute()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
