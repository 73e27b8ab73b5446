package model

import "fmt"

// VersionTag is a semantic version identifier.
type VersionTag struct {
	Major, Minor, Patch uint8
}

// String formats the tag as v<major>.<minor>.<patch>.
func (v VersionTag) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Packed returns the tag as major<<16 | minor<<8 | patch.
func (v VersionTag) Packed() uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)<<8 | uint32(v.Patch)
}

// UnpackVersion is the inverse of VersionTag.Packed.
func UnpackVersion(packed uint32) VersionTag {
	return VersionTag{
		Major: uint8(packed >> 16),
		Minor: uint8(packed >> 8),
		Patch: uint8(packed),
	}
}
