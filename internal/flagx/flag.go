// Package flagx lets several configuration layers share one command line.
// Each layer picks out only the flags it owns before handing them to a
// flag.FlagSet, so unknown flags from another layer never abort parsing.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// configFlags are the names that point at a JSON configuration file.
var configFlags = []string{"c", "config"}

// flagName strips one or two leading dashes. It returns "" for arguments that
// are not flags, including a lone "-".
func flagName(arg string) string {
	if len(arg) < 2 || arg[0] != '-' {
		return ""
	}
	name := strings.TrimPrefix(arg[1:], "-")
	name, _, _ = strings.Cut(name, "=")
	return name
}

// FilterArgs keeps the flags listed in allowed, together with their values.
// Entries of allowed may be written as "-x", "--x" or "x"; both dash forms
// match on the command line. A value is either joined with '=' or is the next
// argument when that argument does not itself look like a flag. Parsing stops
// at "--".
func FilterArgs(args []string, allowed []string) []string {
	names := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		names[strings.TrimLeft(a, "-")] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}

		name := flagName(arg)
		if _, ok := names[name]; !ok || name == "" {
			continue
		}
		out = append(out, arg)

		if strings.Contains(arg, "=") {
			continue
		}
		if i+1 < len(args) && flagName(args[i+1]) == "" && args[i+1] != "--" {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigPath returns the JSON config file named by -c or -config in args,
// or "" when neither is given. The last occurrence wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, configFlags))

	return path
}
