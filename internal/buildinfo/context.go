// Package buildinfo carries build-time metadata injected through -ldflags.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// UnknownValue stands in for metadata that was not injected at build time.
const UnknownValue = "unknown"

// BuildInfo provides access to build-time metadata.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
	GetCommit() string
}

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	// Version holds the Git version tag from build
	Version string
	// BuildDate is the time when the binary was built
	BuildDate string
	// Commit is the VCS revision; falls back to the revision recorded by the Go toolchain
	Commit string
}

// NewContext returns build metadata, filling an empty commit from the
// binary's embedded VCS information when available.
func NewContext(version, buildDate, commit string) *Context {
	if commit == "" {
		commit = vcsRevision()
	}
	return &Context{Version: version, BuildDate: buildDate, Commit: commit}
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownValue
	}
	return s
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.Version)
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.BuildDate)
}

// GetCommit implements BuildInfo.GetCommit
func (c *Context) GetCommit() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.Commit)
}

// GoVersion returns the toolchain version the binary was built with.
func GoVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.GoVersion != "" {
		return info.GoVersion
	}
	return UnknownValue
}

// String renders a one-line version banner.
func (c *Context) String() string {
	return fmt.Sprintf("tilemerge %s (commit %s, built %s, %s)",
		c.GetVersion(), c.GetCommit(), c.GetBuildDate(), GoVersion())
}
