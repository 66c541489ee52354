// Package flagx picks a subset of flags out of a shared argument list so that
// several flag sets (config file, server options) can parse os.Args without
// failing on each other's flags.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// flagName strips leading dashes and any "=value" suffix from arg.
// It reports false when arg is not a flag.
func flagName(arg string) (string, bool) {
	if len(arg) < 2 || arg[0] != '-' {
		return "", false
	}
	name := strings.TrimLeft(arg, "-")
	if i := strings.IndexByte(name, '='); i >= 0 {
		name = name[:i]
	}
	return name, name != ""
}

// FilterArgs keeps the arguments of args that belong to one of the allowed
// flags, together with a separate value when one follows. "-x" and "--x"
// are treated as the same flag, so allowed may list either spelling or the
// bare name.
// Scanning stops at the "--" terminator.
//
// The result is never nil.
func FilterArgs(args []string, allowed []string) []string {
	names := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		if n := strings.TrimLeft(a, "-"); n != "" {
			names[n] = true
		}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name, ok := flagName(arg)
		if !ok || !names[name] {
			continue
		}
		out = append(out, arg)
		if strings.Contains(arg, "=") {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			out = append(out, args[i])
		}
	}
	return out
}

// ConfigPath returns the value of the -c / -config flag in args, or "" when
// neither is given. The last occurrence wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (shorthand)")
	_ = fs.Parse(FilterArgs(args, []string{"c", "config"}))

	return path
}
