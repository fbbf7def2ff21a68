// Package flagx lets several configuration layers share os.Args without
// tripping over each other's flags.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the subset of args made of the allowed flags and their
// values, preserving order. Both "-f value" and "-f=value" forms are kept.
// A value is only consumed when it does not itself look like a flag.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFileFlag extracts the JSON config path given with -c or -config.
// It returns "" when neither is present.
func ConfigFileFlag(args []string) string {
	return stringFlag(args, "config", "c")
}

// EnvFileFlag extracts the dotenv file path given with -env.
func EnvFileFlag(args []string) string {
	return stringFlag(args, "env", "")
}

func stringFlag(args []string, long, short string) string {
	var value string

	names := []string{"-" + long, "--" + long}
	if short != "" {
		names = append(names, "-"+short)
	}

	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&value, long, "", "")
	if short != "" {
		fs.StringVar(&value, short, "", "")
	}
	_ = fs.Parse(FilterArgs(args, names))

	return value
}
