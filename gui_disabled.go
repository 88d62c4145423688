//go:build !gui

package main

import "gamepal/settings"

func initGUI() {
	panic("gamepal: built without GUI support (rebuild with -tags gui)")
}

func guiSurface() Display             { return nil }
func configureGUI(settings.Settings) {}
func bindGUI(*app)                    {}
func quitGUI()                        {}
