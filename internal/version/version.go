// Package version carries the build identity of sysconfd. The variables are
// set at link time with -ldflags "-X sysconfd/internal/version.Version=...".
package version

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

var (
	// Version is the current version of sysconfd
	Version = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"

	// BuildDate is the build date
	BuildDate = "unknown"

	// GoVersion is the golang version
	GoVersion = runtime.Version()

	// Platform is the running platform
	Platform = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
)

// Info represents version information
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns version information
func GetInfo() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
		Platform:  Platform,
	}
}

// String returns a string representation of version information
func (i Info) String() string {
	return fmt.Sprintf("sysconfd %s\nGit Commit: %s\nBuild Date: %s\nGo Version: %s\nPlatform: %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// Fields returns the build identity as log fields for the startup line
func (i Info) Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", i.Version),
		zap.String("git_commit", i.GitCommit),
		zap.String("build_date", i.BuildDate),
		zap.String("go_version", i.GoVersion),
		zap.String("platform", i.Platform),
	}
}

// UserAgent names an outbound client of sysconfd, e.g.
// "sysconfd-webhook/1.2.0 (linux/amd64)".
func UserAgent(component string) string {
	return fmt.Sprintf("sysconfd-%s/%s (%s)", component, Version, Platform)
}
