// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata stamped into the loopfx binary with
// linker flags:
//
//	go build -ldflags "-X loopfx/pkg/build.buildVersion=v0.3.0 \
//	    -X loopfx/pkg/build.buildCommit=$(git rev-parse --short HEAD) ..."
//
// Development builds carry "dev" placeholders instead.
package build

import (
	"errors"
	"fmt"
)

// Info is the build metadata reported by "loopfx version" and logged at startup.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String renders the metadata on one line.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Set by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var current = Info{
	Name:    "loopfx",
	Time:    "dev",
	Commit:  "dev",
	Version: "dev",
}

// Initialize copies the linker-provided values into the reported Info. A
// partially stamped binary is reported as an error listing every missing flag
// and keeps the development placeholders.
func Initialize() error {
	var errs []error
	if buildName == "" {
		errs = append(errs, errors.New("buildName is required"))
	}
	if buildTime == "" {
		errs = append(errs, errors.New("buildTime is required"))
	}
	if buildCommit == "" {
		errs = append(errs, errors.New("buildCommit is required"))
	}
	if buildVersion == "" {
		errs = append(errs, errors.New("buildVersion is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	current = Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	return nil
}

// Get returns the build metadata.
func Get() Info {
	return current
}
