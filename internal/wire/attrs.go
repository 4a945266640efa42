package wire

import (
	"os"
	"time"
)

// Attribute presence flags.
const (
	AttrSize        = 0x00000001
	AttrUIDGID      = 0x00000002
	AttrPermissions = 0x00000004
	AttrACModTime   = 0x00000008
	AttrExtended    = 0x80000000
)

// Open pflags.
const (
	OpenRead      = 0x00000001
	OpenWrite     = 0x00000002
	OpenAppend    = 0x00000004
	OpenCreate    = 0x00000008
	OpenTruncate  = 0x00000010
	OpenExclusive = 0x00000020
)

// POSIX file-type bits carried in the permissions field.
const (
	modeTypeMask = 0o170000
	modeFIFO     = 0o010000
	modeChar     = 0o020000
	modeDir      = 0o040000
	modeBlock    = 0o060000
	modeRegular  = 0o100000
	modeSymlink  = 0o120000
	modeSocket   = 0o140000
)

// Attrs is the version 3 attribute block. Flags records which fields the
// peer actually sent; the remaining fields are zero when absent.
type Attrs struct {
	Flags       uint32
	Size        uint64
	UID         uint32
	GID         uint32
	Permissions uint32
	ATime       uint32
	MTime       uint32
}

// HasSize reports whether the size field was present.
func (a Attrs) HasSize() bool { return a.Flags&AttrSize != 0 }

// FileMode converts the POSIX permissions field to an os.FileMode.
func (a Attrs) FileMode() os.FileMode {
	m := os.FileMode(a.Permissions & 0o777)
	switch a.Permissions & modeTypeMask {
	case modeDir:
		m |= os.ModeDir
	case modeSymlink:
		m |= os.ModeSymlink
	case modeSocket:
		m |= os.ModeSocket
	case modeFIFO:
		m |= os.ModeNamedPipe
	case modeBlock:
		m |= os.ModeDevice
	case modeChar:
		m |= os.ModeDevice | os.ModeCharDevice
	}
	return m
}

// ModTime converts the mtime field to a time.Time; zero when absent.
func (a Attrs) ModTime() time.Time {
	if a.Flags&AttrACModTime == 0 {
		return time.Time{}
	}
	return time.Unix(int64(a.MTime), 0)
}

// IsDir reports whether the permissions field marks a directory.
func (a Attrs) IsDir() bool {
	return a.Permissions&modeTypeMask == modeDir
}

// AttrsFromFileInfo builds the attribute block for an os.FileInfo, used when
// creating remote files and by servers answering stat requests.
func AttrsFromFileInfo(fi os.FileInfo) Attrs {
	perms := uint32(fi.Mode().Perm())
	switch {
	case fi.Mode().IsDir():
		perms |= modeDir
	case fi.Mode()&os.ModeSymlink != 0:
		perms |= modeSymlink
	default:
		perms |= modeRegular
	}
	return Attrs{
		Flags:       AttrSize | AttrPermissions | AttrACModTime,
		Size:        uint64(fi.Size()),
		Permissions: perms,
		ATime:       uint32(fi.ModTime().Unix()),
		MTime:       uint32(fi.ModTime().Unix()),
	}
}

// PermAttrs builds an attribute block carrying only a permissions field.
func PermAttrs(perm os.FileMode) Attrs {
	return Attrs{
		Flags:       AttrPermissions,
		Permissions: uint32(perm.Perm()),
	}
}

// AppendAttrs appends the encoded attribute block.
func AppendAttrs(b []byte, a Attrs) []byte {
	flags := a.Flags &^ uint32(AttrExtended)
	b = AppendUint32(b, flags)
	if flags&AttrSize != 0 {
		b = AppendUint64(b, a.Size)
	}
	if flags&AttrUIDGID != 0 {
		b = AppendUint32(b, a.UID)
		b = AppendUint32(b, a.GID)
	}
	if flags&AttrPermissions != 0 {
		b = AppendUint32(b, a.Permissions)
	}
	if flags&AttrACModTime != 0 {
		b = AppendUint32(b, a.ATime)
		b = AppendUint32(b, a.MTime)
	}
	return b
}

// ParseAttrs splits an attribute block off the front of b. Extended
// attribute pairs are skipped so the cursor stays aligned.
func ParseAttrs(b []byte) (a Attrs, rest []byte, ok bool) {
	a.Flags, rest, ok = ParseUint32(b)
	if !ok {
		return Attrs{}, nil, false
	}
	if a.Flags&AttrSize != 0 {
		if a.Size, rest, ok = ParseUint64(rest); !ok {
			return Attrs{}, nil, false
		}
	}
	if a.Flags&AttrUIDGID != 0 {
		if a.UID, rest, ok = ParseUint32(rest); !ok {
			return Attrs{}, nil, false
		}
		if a.GID, rest, ok = ParseUint32(rest); !ok {
			return Attrs{}, nil, false
		}
	}
	if a.Flags&AttrPermissions != 0 {
		if a.Permissions, rest, ok = ParseUint32(rest); !ok {
			return Attrs{}, nil, false
		}
	}
	if a.Flags&AttrACModTime != 0 {
		if a.ATime, rest, ok = ParseUint32(rest); !ok {
			return Attrs{}, nil, false
		}
		if a.MTime, rest, ok = ParseUint32(rest); !ok {
			return Attrs{}, nil, false
		}
	}
	if a.Flags&AttrExtended != 0 {
		var count uint32
		if count, rest, ok = ParseUint32(rest); !ok {
			return Attrs{}, nil, false
		}
		for i := uint32(0); i < count; i++ {
			if _, rest, ok = ParseString(rest); !ok {
				return Attrs{}, nil, false
			}
			if _, rest, ok = ParseString(rest); !ok {
				return Attrs{}, nil, false
			}
		}
	}
	return a, rest, true
}
