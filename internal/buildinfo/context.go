// Package buildinfo carries build-time metadata, kept apart from user
// configuration.
package buildinfo

import (
	"fmt"

	"github.com/google/uuid"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Context holds the version stamped in by the linker and an id for this
// process, used as the telemetry release and in log lines.
type Context struct {
	Version   string
	BuildDate string
	// InstanceID distinguishes concurrent admin processes sharing one
	// MySQL database
	InstanceID string
}

// NewContext creates build metadata. An empty instanceID is generated.
func NewContext(version, buildDate, instanceID string) *Context {
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	return &Context{Version: version, BuildDate: buildDate, InstanceID: instanceID}
}

// GetVersion returns the build version.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release returns the telemetry release name.
func (c *Context) Release() string {
	return fmt.Sprintf("scenestore@%s", c.GetVersion())
}

// String renders the version line printed by the CLI.
func (c *Context) String() string {
	return fmt.Sprintf("scenestore %s (built %s)", c.GetVersion(), c.GetBuildDate())
}
