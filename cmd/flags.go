package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlags binds each flag to its viper key. A flag that was never set
// on the command line only supplies a default.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			panic(fmt.Sprintf("bindFlags: unknown flag %q", name))
		}
		_ = viper.BindPFlag(key, flag)
	}
}

// validateChoice rejects a flag value outside choices.
func validateChoice(flag, value string, choices ...string) error {
	for _, c := range choices {
		if value == c {
			return nil
		}
	}
	sorted := append([]string(nil), choices...)
	sort.Strings(sorted)
	return fmt.Errorf("invalid --%s %q (supported: %s)", flag, value, strings.Join(sorted, ", "))
}
