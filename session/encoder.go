package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sort"
)

const (
	sessionFormatVersionCurrent = 2
	sessionFormatVersionV1      = 1
)

var (
	errFieldTooLong   = errors.New("session field too long")
	errInvalidVersion = errors.New("invalid session version")
)

// Encode serialises s into the versioned binary layout stored in Redis.
//
// v2 layout: version | slot | token | role | id | name | email | phone |
// image | profile(count, k, v ...) | createdAt | expiresAt. Strings are
// uint16 length-prefixed; tokens routinely exceed 255 bytes.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}

	var buf bytes.Buffer
	buf.Grow(64 + len(s.Token))

	buf.WriteByte(sessionFormatVersionCurrent)

	for _, field := range []string{s.Slot, s.Token} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(byte(s.Role))

	for _, field := range []string{s.User.ID, s.User.Name, s.User.Email, s.User.Phone, s.User.Image} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}

	if len(s.User.Profile) > math.MaxUint16 {
		return nil, errFieldTooLong
	}
	keys := make([]string, 0, len(s.User.Profile))
	for k := range s.User.Profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(keys))); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := writeString(&buf, k); err != nil {
			return nil, err
		}
		if err := writeString(&buf, s.User.Profile[k]); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode. v1 blobs (no profile map, user
// type implied by role) are still accepted.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent && version != sessionFormatVersionV1 {
		return nil, errInvalidVersion
	}

	s := &Session{}

	if s.Slot, err = readString(reader); err != nil {
		return nil, err
	}
	if s.Token, err = readString(reader); err != nil {
		return nil, err
	}

	role, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Role = Role(role)
	if !s.Role.Valid() {
		return nil, ErrUnknownRole
	}
	s.User.Type = s.Role

	fields := []*string{&s.User.ID, &s.User.Name, &s.User.Email, &s.User.Phone, &s.User.Image}
	for _, field := range fields {
		if *field, err = readString(reader); err != nil {
			return nil, err
		}
	}

	if version == sessionFormatVersionCurrent {
		var count uint16
		if err := binary.Read(reader, binary.BigEndian, &count); err != nil {
			return nil, err
		}
		if count > 0 {
			s.User.Profile = make(map[string]string, count)
		}
		for i := 0; i < int(count); i++ {
			k, err := readString(reader)
			if err != nil {
				return nil, err
			}
			v, err := readString(reader)
			if err != nil {
				return nil, err
			}
			s.User.Profile[k] = v
		}
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	return s, nil
}

func writeString(buf *bytes.Buffer, v string) error {
	if len(v) > math.MaxUint16 {
		return errFieldTooLong
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(v))); err != nil {
		return err
	}
	buf.WriteString(v)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}
