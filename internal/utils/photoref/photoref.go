package photoref

import (
	"fmt"
	"strings"

	"github.com/duosnap/backend/internal/db"
)

// marker separates the source reference from the artificial tag.
// References are opaque storage keys and never contain '#'.
const marker = "#artificial:"

// DeriveArtificial builds the photo reference written into the missing
// side of a force-completed pairing. The result points at the same
// underlying image as source but stays distinguishable from it, so the
// two sides remain separate records.
func DeriveArtificial(source string, side db.Side) string {
	return fmt.Sprintf("%s%s%s", source, marker, side)
}

// IsArtificial reports whether ref was produced by DeriveArtificial.
func IsArtificial(ref string) bool {
	return strings.Contains(ref, marker)
}

// Source returns the underlying reference an artificial ref was
// derived from. Genuine references pass through unchanged.
func Source(ref string) string {
	if i := strings.Index(ref, marker); i >= 0 {
		return ref[:i]
	}
	return ref
}
