package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFileCandidates lists the .env files consulted for a config path: the one
// next to the config file first, then the working directory.
func envFileCandidates(configPath string) []string {
	var out []string
	if configPath != "" {
		out = append(out, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	return append(out, ".env", ".env.local")
}

// loadEnvFiles loads every existing candidate. Variables already present in the
// process environment are never overridden.
func loadEnvFiles(paths []string) []string {
	var loaded []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			loaded = append(loaded, p)
		}
	}
	return loaded
}
