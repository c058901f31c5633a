package cli

import "github.com/alecthomas/kong"

// Set at build time through -ldflags.
var (
	Version   = "dev"
	CommitSHA = ""
)

// VersionString combines the version and commit for --version output.
func VersionString() string {
	if CommitSHA == "" {
		return Version
	}
	return Version + " (" + CommitSHA + ")"
}

// Globals defines flags shared by every command.
type Globals struct {
	Telemetry bool             `help:"Show timing telemetry for operations."`
	Version   kong.VersionFlag `help:"Print the version and exit."`
}

// Commands is the root of the command tree.
type Commands struct {
	Globals

	Check CheckCmd `cmd:"" help:"Parse and validate a beancount input file."`
	Gains GainsCmd `cmd:"" help:"Insert unrealized gain entries into a beancount ledger."`
}
