package asynctimer

// Mode selects whether a timer fires once or re-arms itself.
type Mode string

const (
	// ModeOneShot invokes the callback at most once, then terminates.
	ModeOneShot Mode = "one-shot"
	// ModePeriodic re-arms the timer and invokes the callback repeatedly at
	// the configured interval until stopped.
	ModePeriodic Mode = "periodic"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeOneShot, ModePeriodic:
		return true
	}
	return false
}

func (m Mode) String() string { return string(m) }
