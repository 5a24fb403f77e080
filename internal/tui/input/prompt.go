// Package input parses the TUI command prompt.
package input

import "strings"

// PromptCommand describes a command suggestion entry.
type PromptCommand struct {
	Name        string
	Args        string // usage hint, e.g. "<day>"
	Description string
}

// Commands are the slash commands the prompt understands.
var Commands = []PromptCommand{
	{Name: "/book", Args: "<title>", Description: "Book the selection as a game"},
	{Name: "/category", Args: "[id]", Description: "Filter courts by category (empty clears)"},
	{Name: "/date", Args: "<day>", Description: "Jump to a day: today, +1, fri, 2025-03-14"},
	{Name: "/handle", Args: "[comment]", Description: "Mark the booking's chats handled"},
	{Name: "/theme", Args: "<name>", Description: "Switch color theme"},
}

// Parsed is one submitted prompt line.
type Parsed struct {
	Name string // with the leading slash
	Args string
}

// Parse splits a submitted line into command and arguments. Lines that do
// not start with a slash are not commands.
func Parse(line string) (Parsed, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || line == "/" {
		return Parsed{}, false
	}
	name, args, _ := strings.Cut(line, " ")
	return Parsed{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}, true
}

// Lookup returns the command with the given name.
func Lookup(name string, commands []PromptCommand) (PromptCommand, bool) {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return PromptCommand{}, false
}

// PromptMatchingCommands returns commands that match the current input prefix.
func PromptMatchingCommands(input string, commands []PromptCommand) []PromptCommand {
	if !strings.HasPrefix(strings.TrimSpace(input), "/") {
		return nil
	}
	if strings.Contains(input, " ") {
		return nil
	}

	prefix := strings.ToLower(strings.TrimSpace(input))
	matches := make([]PromptCommand, 0, len(commands))
	for _, cmd := range commands {
		if strings.HasPrefix(cmd.Name, prefix) {
			matches = append(matches, cmd)
		}
	}
	return matches
}

// PromptAutocomplete returns the first matching command and whether it exists.
func PromptAutocomplete(input string, commands []PromptCommand) (string, bool) {
	matches := PromptMatchingCommands(input, commands)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0].Name + " ", true
}
