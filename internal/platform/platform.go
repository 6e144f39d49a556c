// Package platform detects the default configuration roots of the running
// operating system. Detection happens at runtime from the GOOS name so tests
// can describe any platform without build tags.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	Linux   = "linux"
	Darwin  = "darwin"
	Windows = "windows"
)

// Platform holds the default roots for one operating system. An empty root is
// unset.
type Platform struct {
	Name       string
	SystemRoot string
	UserRoot   string
	TempRoot   string
	// Warnings collects problems found during detection; resolution continues
	// with the roots that remain.
	Warnings []string
}

// Current detects the platform of the running process.
func Current() Platform {
	return Detect(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

// Detect computes the default roots for goos.
func Detect(goos string, getenv func(string) string, home func() (string, error)) Platform {
	p := Platform{Name: goos}

	switch goos {
	case Linux, "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos", "aix":
		p.SystemRoot = string(filepath.Separator) + "etc"
		p.UserRoot = homeDir(home)
	case Darwin:
		p.SystemRoot = string(filepath.Separator) + "Library"
		p.UserRoot = homeDir(home)
	case Windows:
		p.SystemRoot = firstNonEmpty(getenv("ProgramData"), getenv("APPDATA"))
		p.UserRoot = getenv("APPDATA")
		if p.SystemRoot == "" {
			p.Warnings = append(p.Warnings, "neither %ProgramData% nor %APPDATA% is set")
		}
	default:
		p.Warnings = append(p.Warnings, "failed to determine default configuration root for "+goos)
		p.UserRoot = homeDir(home)
	}

	p.TempRoot = tempRoot(goos, getenv)
	return p
}

func homeDir(home func() (string, error)) string {
	if home == nil {
		return ""
	}
	dir, err := home()
	if err != nil {
		return ""
	}
	return dir
}

func tempRoot(goos string, getenv func(string) string) string {
	if goos == Windows {
		if dir := firstNonEmpty(getenv("TMP"), getenv("TEMP"), getenv("USERPROFILE")); dir != "" {
			return dir
		}
		return firstNonEmpty(getenv("SystemRoot"), `C:\Windows`) + `\Temp`
	}
	return firstNonEmpty(getenv("TMPDIR"), "/tmp")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
