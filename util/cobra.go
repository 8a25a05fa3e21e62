package util

import (
	"strings"

	"github.com/spf13/pflag"
)

// ExtractUnknownArgs returns the arguments cobra parsed past without
// matching a registered flag. We use it to accept a bare log level
// on the command line without declaring a flag for it.
func ExtractUnknownArgs(flags *pflag.FlagSet, args []string) []string {
	var unknown []string

	for i := 0; i < len(args); i++ {
		a := args[i]

		var f *pflag.Flag
		if strings.HasPrefix(a, "--") {
			f = flags.Lookup(strings.SplitN(a[2:], "=", 2)[0])
		} else if strings.HasPrefix(a, "-") && len(a) > 1 {
			for _, s := range a[1:] {
				if f = flags.ShorthandLookup(string(s)); f == nil {
					break
				}
			}
		}

		if f == nil {
			unknown = append(unknown, a)
			continue
		}

		// A known flag may consume the next argument as its value.
		if f.NoOptDefVal == "" && i+1 < len(args) && f.Value.String() == args[i+1] {
			i++
		}
	}

	return unknown
}
