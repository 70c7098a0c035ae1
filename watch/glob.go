package watch

import "strings"

// Globs is a flag value collecting additional ignore patterns.
type Globs struct {
	NoDefault  bool
	Default    []string
	Additional []string
}

func (globs *Globs) All() []string {
	if globs.NoDefault {
		return globs.Additional
	}

	return append(append([]string{}, globs.Default...), globs.Additional...)
}

// Filter returns DefaultIgnore combined with the collected globs.
func (globs *Globs) Filter() Filter {
	all := globs.All()
	if len(all) == 0 {
		return DefaultIgnore
	}
	return IgnoreAll(DefaultIgnore, IgnoreGlobs(all...))
}

func (globs *Globs) String() string {
	return strings.Join(globs.All(), ";")
}

func (globs *Globs) Set(value string) error {
	values := strings.Split(strings.Replace(value, ":", ";", -1), ";")
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			globs.Additional = append(globs.Additional, value)
		}
	}
	return nil
}

// Type implements pflag.Value.
func (globs *Globs) Type() string { return "globs" }
