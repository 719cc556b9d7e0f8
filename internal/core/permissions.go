package core

// Capability is a single storage permission granted by a token.
type Capability string

const (
	CapList   Capability = "list"
	CapRead   Capability = "read"
	CapAdd    Capability = "add"
	CapCreate Capability = "create"
	CapWrite  Capability = "write"
	CapDelete Capability = "delete"
)

var (
	readEnvelope   = []Capability{CapList, CapRead}
	writeEnvelope  = append(append([]Capability{}, readEnvelope...), CapAdd, CapCreate, CapWrite)
	deleteEnvelope = append(append([]Capability{}, writeEnvelope...), CapDelete)
)

// Envelope returns the capabilities granted for a class. Each tier contains the
// one below it.
func Envelope(class OperationClass) []Capability {
	var src []Capability
	switch class {
	case ClassRead:
		src = readEnvelope
	case ClassWrite:
		src = writeEnvelope
	case ClassDelete:
		src = deleteEnvelope
	default:
		return nil
	}
	out := make([]Capability, len(src))
	copy(out, src)
	return out
}
