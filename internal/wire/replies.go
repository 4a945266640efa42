package wire

// Reply payload builders and decoders. Builders serve the in-process server;
// decoders serve the connection layer.

// NameEntry is one row of a NAME reply.
type NameEntry struct {
	Filename string
	Longname string
	Attrs    Attrs
}

// MarshalVersion builds the VERSION payload.
func MarshalVersion() []byte {
	return AppendUint32(nil, ProtocolVersion)
}

// MarshalStatus builds a STATUS payload.
func MarshalStatus(id, code uint32, msg string) []byte {
	b := AppendUint32(nil, id)
	b = AppendUint32(b, code)
	b = AppendString(b, msg)
	return AppendString(b, "en")
}

// MarshalHandle builds a HANDLE payload.
func MarshalHandle(id uint32, handle string) []byte {
	b := AppendUint32(nil, id)
	return AppendString(b, handle)
}

// MarshalData builds a DATA payload.
func MarshalData(id uint32, data []byte) []byte {
	b := AppendUint32(nil, id)
	return AppendBytes(b, data)
}

// MarshalName builds a NAME payload from directory entries.
func MarshalName(id uint32, entries []NameEntry) []byte {
	b := AppendUint32(nil, id)
	b = AppendUint32(b, uint32(len(entries)))
	for _, e := range entries {
		b = AppendString(b, e.Filename)
		b = AppendString(b, e.Longname)
		b = AppendAttrs(b, e.Attrs)
	}
	return b
}

// MarshalAttrsReply builds an ATTRS payload.
func MarshalAttrsReply(id uint32, a Attrs) []byte {
	b := AppendUint32(nil, id)
	return AppendAttrs(b, a)
}

// DecodeVersion decodes a VERSION payload; extension pairs are ignored.
func DecodeVersion(payload []byte) (uint32, error) {
	v, _, ok := ParseUint32(payload)
	if !ok {
		return 0, errShortPacket
	}
	return v, nil
}

// DecodeStatus decodes a STATUS payload (after the id). The language tag is
// optional in practice and ignored.
func DecodeStatus(rest []byte) (code uint32, msg string, err error) {
	code, rest, ok := ParseUint32(rest)
	if !ok {
		return 0, "", errShortPacket
	}
	if m, _, ok := ParseString(rest); ok {
		msg = string(m)
	}
	return code, msg, nil
}

// DecodeHandle decodes a HANDLE payload (after the id).
func DecodeHandle(rest []byte) (string, error) {
	h, _, ok := ParseString(rest)
	if !ok {
		return "", errShortPacket
	}
	return string(h), nil
}

// DecodeData decodes a DATA payload (after the id). The returned slice
// aliases the input.
func DecodeData(rest []byte) ([]byte, error) {
	d, _, ok := ParseString(rest)
	if !ok {
		return nil, errShortPacket
	}
	return d, nil
}

// DecodeNamePage decodes a NAME payload (after the id).
func DecodeNamePage(rest []byte) ([]NameEntry, error) {
	count, rest, ok := ParseUint32(rest)
	if !ok {
		return nil, errShortPacket
	}
	entries := make([]NameEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		var fn, ln []byte
		if fn, rest, ok = ParseString(rest); !ok {
			return nil, errShortPacket
		}
		if ln, rest, ok = ParseString(rest); !ok {
			return nil, errShortPacket
		}
		var a Attrs
		if a, rest, ok = ParseAttrs(rest); !ok {
			return nil, errShortPacket
		}
		entries = append(entries, NameEntry{Filename: string(fn), Longname: string(ln), Attrs: a})
	}
	return entries, nil
}

// DecodeAttrsReply decodes an ATTRS payload (after the id).
func DecodeAttrsReply(rest []byte) (Attrs, error) {
	a, _, ok := ParseAttrs(rest)
	if !ok {
		return Attrs{}, errShortPacket
	}
	return a, nil
}
