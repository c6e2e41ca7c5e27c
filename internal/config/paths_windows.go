//go:build windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	local := os.Getenv("LOCALAPPDATA")
	programData := os.Getenv("ProgramData")
	return []string{
		"resmon.yaml",
		filepath.Join(local, "Resmon", "config.yaml"),
		filepath.Join(programData, "Resmon", "resmon.yaml"),
	}
}
