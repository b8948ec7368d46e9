//go:build tinygo

package main

import (
	"sparkrt/app"
	"sparkrt/hal"
	"sparkrt/internal/profile"
)

func main() {
	h := hal.New()
	p, err := profile.Preset("pico2")
	if err != nil {
		h.Logger().WriteLineString("profile: " + err.Error())
		p = profile.Default()
	}
	app.Run(h, app.Config{Profile: p, Demo: true})
}
