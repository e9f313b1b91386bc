package config

import (
	"fmt"
	"path"
	"strings"
)

// ResolvedFiles holds the config and env file paths picked for a service.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolve returns explicit paths from lc when set, otherwise the first
// existing candidate for serviceName. Missing files resolve to "".
func Resolve(serviceName string, lc LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	if files.ConfigFile != "" && !lc.FileSystem.Exists(files.ConfigFile) {
		files.ConfigFile = ""
	} else if files.ConfigFile == "" {
		files.ConfigFile = firstExisting(lc.FileSystem, configCandidates(serviceName))
	}
	if files.EnvFile != "" && !lc.FileSystem.Exists(files.EnvFile) {
		files.EnvFile = ""
	} else if files.EnvFile == "" {
		files.EnvFile = firstExisting(lc.FileSystem, envCandidates(serviceName))
	}
	return files
}

func firstExisting(fs FileSystem, candidates []string) string {
	for _, p := range candidates {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// serviceNames returns the service name and, for hyphenated names, its last segment.
func serviceNames(serviceName string) []string {
	if serviceName == "" {
		return nil
	}
	names := []string{serviceName}
	if i := strings.LastIndex(serviceName, "-"); i != -1 && i < len(serviceName)-1 {
		names = append(names, serviceName[i+1:])
	}
	return names
}

var parents = []string{".", "..", "../.."}

func configCandidates(serviceName string) []string {
	var out []string
	for _, name := range serviceNames(serviceName) {
		for _, p := range parents {
			out = append(out, path.Join(p, "cmd", name, "config.yml"))
		}
	}
	return append(out, "config/config.yml", "../config/config.yml", "config.yml")
}

func envCandidates(serviceName string) []string {
	var dirs []string
	for _, name := range serviceNames(serviceName) {
		for _, p := range parents {
			dirs = append(dirs, path.Join(p, "cmd", name), path.Join(p, "config", name))
		}
	}
	for _, p := range parents {
		dirs = append(dirs, path.Join(p, "config"))
	}
	dirs = append(dirs, parents...)

	files := []string{".env"}
	if serviceName != "" {
		files = []string{fmt.Sprintf(".env.%s", serviceName), ".env"}
	}

	var out []string
	for _, f := range files {
		for _, d := range dirs {
			out = append(out, path.Join(d, f))
		}
	}
	return out
}
