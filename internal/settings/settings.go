package settings

import "time"

const CmdName = "looptrace"

const (
	// StatusRefresh is how often the status bar is redrawn.
	StatusRefresh = time.Second

	// DumpFile is the default path of the raw event dump.
	DumpFile = CmdName + ".events"
)
