package main

import "ec2-pricing/internal/app"

var version = "dev"

func main() {
	app.Execute(version)
}
