package clitest

import "github.com/spf13/pflag"

func resetFlag(f *pflag.Flag, prev string) {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		_ = sv.Replace(nil)
	} else {
		_ = f.Value.Set(prev)
	}
	f.Changed = false
}
