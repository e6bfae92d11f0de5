package display

import (
	"regexp"
	"strings"
)

// CommandType identifies a command-line action.
type CommandType string

const (
	CmdUnknown  CommandType = "unknown"
	CmdInterval CommandType = "interval"
	CmdVoice    CommandType = "voice"
	CmdLanguage CommandType = "language"
	CmdMute     CommandType = "mute"
	CmdTest     CommandType = "test"
	CmdTicker   CommandType = "ticker"
	CmdHelp     CommandType = "help"
	CmdQuit     CommandType = "quit"
)

// Command is a parsed command line. Arg is the rest of the line after the
// keyword, trimmed.
type Command struct {
	Type CommandType
	Arg  string
}

type commandRule struct {
	regex *regexp.Regexp
	typ   CommandType
}

// commandRules match the first word; aliases are accepted for each.
var commandRules = []commandRule{
	{regexp.MustCompile(`(?i)^(interval|grid|i)$`), CmdInterval},
	{regexp.MustCompile(`(?i)^(voice|v)$`), CmdVoice},
	{regexp.MustCompile(`(?i)^(lang|language)$`), CmdLanguage},
	{regexp.MustCompile(`(?i)^(mute|unmute|m)$`), CmdMute},
	{regexp.MustCompile(`(?i)^(test|t)$`), CmdTest},
	{regexp.MustCompile(`(?i)^(ticker|k)$`), CmdTicker},
	{regexp.MustCompile(`(?i)^(help|h|\?)$`), CmdHelp},
	{regexp.MustCompile(`(?i)^(quit|exit|q)$`), CmdQuit},
}

// ParseCommand converts a command line into a Command. Empty input parses
// as CmdUnknown with an empty Arg.
func ParseCommand(line string) Command {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Command{Type: CmdUnknown}
	}

	word, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)

	for _, rule := range commandRules {
		if rule.regex.MatchString(word) {
			return Command{Type: rule.typ, Arg: arg}
		}
	}
	return Command{Type: CmdUnknown, Arg: trimmed}
}

const commandHelp = "commands: interval N, voice NAME, lang NAME, mute, test [VOICE], ticker, quit"
