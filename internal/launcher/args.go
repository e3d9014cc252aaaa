package launcher

// Flags are the options the launcher itself understands.
type Flags struct {
	ExecDebug bool
	NoConfig  bool
}

// ParseArgs consumes leading launcher flags and returns the remaining
// arguments, which belong to Ant and are never reordered or rewritten.
func ParseArgs(args []string) (Flags, []string) {
	var flags Flags
	i := 0
	for ; i < len(args); i++ {
		switch args[i] {
		case "--execdebug":
			flags.ExecDebug = true
		case "--noconfig":
			flags.NoConfig = true
		default:
			return flags, args[i:]
		}
	}
	return flags, args[i:]
}
