// Package cli resolves the dcpd command line to a single command and executes it
package cli

import (
	"errors"
	"fmt"
	"strings"
)

// Command is the action selected by the command line flags
type Command int

const (
	// CommandTable prints the port table in the configured order
	CommandTable Command = iota
	CommandDebug
	CommandSortExternal
	CommandSortName
	CommandShowExamples
	CommandVersion
	CommandOutputHTML
	CommandHelp
)

var commandNames = map[Command]string{
	CommandTable:        "table",
	CommandDebug:        "debug",
	CommandSortExternal: "sort-by-external-port",
	CommandSortName:     "sort-by-service-name",
	CommandShowExamples: "show-examples",
	CommandVersion:      "version",
	CommandOutputHTML:   "output-html",
	CommandHelp:         "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// Flag errors
var (
	ErrConflictingFlags   = errors.New("options are mutually exclusive and cannot be used together")
	ErrVerboseWithoutHTML = errors.New("-v/--verbose can only be used with -o/--output-html")
)

// Flags holds the parsed command line switches
type Flags struct {
	Debug        bool
	SortExternal bool
	SortName     bool
	ShowExamples bool
	Version      bool
	OutputHTML   bool
	Help         bool
	Verbose      bool
}

// Resolve maps the flags to one command. At most one command flag may be set and
// verbose is only valid together with output-html.
func (f Flags) Resolve() (Command, error) {
	set := []struct {
		on   bool
		flag string
		cmd  Command
	}{
		{f.Debug, "-d", CommandDebug},
		{f.SortExternal, "-e", CommandSortExternal},
		{f.SortName, "-n", CommandSortName},
		{f.ShowExamples, "-s", CommandShowExamples},
		{f.Version, "-V", CommandVersion},
		{f.OutputHTML, "-o", CommandOutputHTML},
		{f.Help, "-h", CommandHelp},
	}

	cmd := CommandTable
	var given []string
	for _, s := range set {
		if s.on {
			given = append(given, s.flag)
			cmd = s.cmd
		}
	}
	if len(given) > 1 {
		return CommandTable, fmt.Errorf("%w: %s", ErrConflictingFlags, strings.Join(given, " "))
	}
	if f.Verbose && cmd != CommandOutputHTML {
		return CommandTable, ErrVerboseWithoutHTML
	}
	return cmd, nil
}

// NeedsRun reports whether the command regenerates the port report
func (c Command) NeedsRun() bool {
	switch c {
	case CommandShowExamples, CommandVersion, CommandHelp:
		return false
	}
	return true
}
