package wire

// Request payload builders. Each returns the packet payload to hand to
// WritePacket with the matching type constant; builders never fail.

// MarshalInit builds the INIT payload.
func MarshalInit() []byte {
	return AppendUint32(nil, ProtocolVersion)
}

// MarshalOpen builds an OPEN payload.
func MarshalOpen(id uint32, path string, pflags uint32, a Attrs) []byte {
	b := AppendUint32(nil, id)
	b = AppendString(b, path)
	b = AppendUint32(b, pflags)
	return AppendAttrs(b, a)
}

// MarshalRead builds a READ payload for length bytes at offset.
func MarshalRead(id uint32, handle string, offset uint64, length uint32) []byte {
	b := AppendUint32(nil, id)
	b = AppendString(b, handle)
	b = AppendUint64(b, offset)
	return AppendUint32(b, length)
}

// MarshalWrite builds a WRITE payload carrying data at offset.
func MarshalWrite(id uint32, handle string, offset uint64, data []byte) []byte {
	b := AppendUint32(nil, id)
	b = AppendString(b, handle)
	b = AppendUint64(b, offset)
	return AppendBytes(b, data)
}

// MarshalPath builds the payload shared by the single-string requests:
// CLOSE, READDIR, FSTAT (handle) and STAT, LSTAT, OPENDIR, REMOVE, RMDIR,
// REALPATH (path).
func MarshalPath(id uint32, s string) []byte {
	b := AppendUint32(nil, id)
	return AppendString(b, s)
}

// MarshalRename builds a RENAME payload.
func MarshalRename(id uint32, oldPath, newPath string) []byte {
	b := AppendUint32(nil, id)
	b = AppendString(b, oldPath)
	return AppendString(b, newPath)
}

// MarshalMkdir builds a MKDIR payload.
func MarshalMkdir(id uint32, path string, a Attrs) []byte {
	b := AppendUint32(nil, id)
	b = AppendString(b, path)
	return AppendAttrs(b, a)
}

// Request decoders, used by the in-process server. Payloads arrive with the
// request id already split off by ParseID.

// OpenRequest is a decoded OPEN payload.
type OpenRequest struct {
	Path   string
	Pflags uint32
	Attrs  Attrs
}

// DecodeOpen decodes an OPEN payload.
func DecodeOpen(b []byte) (OpenRequest, error) {
	path, rest, ok := ParseString(b)
	if !ok {
		return OpenRequest{}, errShortPacket
	}
	pflags, rest, ok := ParseUint32(rest)
	if !ok {
		return OpenRequest{}, errShortPacket
	}
	a, _, ok := ParseAttrs(rest)
	if !ok {
		return OpenRequest{}, errShortPacket
	}
	return OpenRequest{Path: string(path), Pflags: pflags, Attrs: a}, nil
}

// DecodeRead decodes a READ payload.
func DecodeRead(b []byte) (handle string, offset uint64, length uint32, err error) {
	h, rest, ok := ParseString(b)
	if !ok {
		return "", 0, 0, errShortPacket
	}
	offset, rest, ok = ParseUint64(rest)
	if !ok {
		return "", 0, 0, errShortPacket
	}
	length, _, ok = ParseUint32(rest)
	if !ok {
		return "", 0, 0, errShortPacket
	}
	return string(h), offset, length, nil
}

// DecodeWrite decodes a WRITE payload. The data slice aliases b.
func DecodeWrite(b []byte) (handle string, offset uint64, data []byte, err error) {
	h, rest, ok := ParseString(b)
	if !ok {
		return "", 0, nil, errShortPacket
	}
	offset, rest, ok = ParseUint64(rest)
	if !ok {
		return "", 0, nil, errShortPacket
	}
	data, _, ok = ParseString(rest)
	if !ok {
		return "", 0, nil, errShortPacket
	}
	return string(h), offset, data, nil
}

// DecodePath decodes any single-string payload (path or handle).
func DecodePath(b []byte) (string, error) {
	s, _, ok := ParseString(b)
	if !ok {
		return "", errShortPacket
	}
	return string(s), nil
}

// DecodeRename decodes a RENAME payload.
func DecodeRename(b []byte) (oldPath, newPath string, err error) {
	o, rest, ok := ParseString(b)
	if !ok {
		return "", "", errShortPacket
	}
	n, _, ok := ParseString(rest)
	if !ok {
		return "", "", errShortPacket
	}
	return string(o), string(n), nil
}

// DecodeMkdir decodes a MKDIR payload.
func DecodeMkdir(b []byte) (path string, a Attrs, err error) {
	p, rest, ok := ParseString(b)
	if !ok {
		return "", Attrs{}, errShortPacket
	}
	a, _, ok = ParseAttrs(rest)
	if !ok {
		return "", Attrs{}, errShortPacket
	}
	return string(p), a, nil
}
