//go:build !windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		"resmon.yaml",
		filepath.Join(home, ".resmon", "config.yaml"),
		"/etc/resmon/resmon.yaml",
	}
}
