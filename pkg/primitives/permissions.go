package primitives

// Permissions represents the access level a caller requests for a page.
type Permissions int

const (
	// ReadOnly requests a shared lock.
	ReadOnly Permissions = iota
	// ReadWrite requests an exclusive lock.
	ReadWrite
)

func (p Permissions) String() string {
	switch p {
	case ReadOnly:
		return "READ_ONLY"
	case ReadWrite:
		return "READ_WRITE"
	default:
		return "UNKNOWN"
	}
}
