// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/imulink/pkg/cli/cmds/frame"
)
