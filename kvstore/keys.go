package kvstore

import (
	"encoding/binary"
)

// Tag is the logical key-namespace discriminator prefixed to every key.
type Tag byte

const (
	// TagFileByID maps a fileID to its file record (internalHash, type, size).
	TagFileByID Tag = iota + 1
	// TagFileIDByInfo maps (internalHash, type) to the fileID that owns them.
	TagFileIDByInfo
	// TagFileIDAndURI is the forward file->URI index.
	TagFileIDAndURI
	// TagURIAndFileID is the reverse URI->file index.
	TagURIAndFileID
	// TagUserByID maps a userID to its user record.
	TagUserByID
	// TagUserIDByName maps a username to its userID.
	TagUserIDByName
	// TagTargetURIAndMetaFileID maps a target URI to the meta-files that describe it.
	TagTargetURIAndMetaFileID
	// TagMetaFileIDFieldAndValue maps (metaFileID, field) to its values.
	TagMetaFileIDFieldAndValue
)

// appendUvarint appends a varint-encoded uint64 to buf.
func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// appendLPString appends a varint length prefix followed by s, so that
// multiple strings can be concatenated into one key unambiguously.
func appendLPString(buf []byte, s string) []byte {
	buf = appendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// readUvarint reads a varint-encoded uint64 from the front of buf and
// returns the value and the remaining bytes.
func readUvarint(buf []byte) (uint64, []byte) {
	v, n := binary.Uvarint(buf)
	return v, buf[n:]
}

// readLPString reads a length-prefixed string from the front of buf and
// returns the string and the remaining bytes.
func readLPString(buf []byte) (string, []byte) {
	n, rest := readUvarint(buf)
	return string(rest[:n]), rest[n:]
}

// KeyFileByID builds the TagFileByID key for fileID.
func KeyFileByID(fileID uint64) []byte {
	buf := []byte{byte(TagFileByID)}
	return appendUvarint(buf, fileID)
}

// ValFile encodes a file record's value.
func ValFile(internalHash, typ string, size uint64) []byte {
	var buf []byte
	buf = appendLPString(buf, internalHash)
	buf = appendLPString(buf, typ)
	buf = appendUvarint(buf, size)
	return buf
}

// ParseValFile decodes a file record's value.
func ParseValFile(val []byte) (internalHash, typ string, size uint64) {
	internalHash, val = readLPString(val)
	typ, val = readLPString(val)
	size, val = readUvarint(val)
	return
}

// KeyFileIDByInfo builds the TagFileIDByInfo key for (internalHash, type).
func KeyFileIDByInfo(internalHash, typ string) []byte {
	buf := []byte{byte(TagFileIDByInfo)}
	buf = appendLPString(buf, internalHash)
	buf = appendLPString(buf, typ)
	return buf
}

// ValFileID encodes a bare fileID value.
func ValFileID(fileID uint64) []byte {
	return appendUvarint(nil, fileID)
}

// ParseValFileID decodes a bare fileID value.
func ParseValFileID(val []byte) uint64 {
	v, _ := readUvarint(val)
	return v
}

// KeyFileIDAndURI builds the forward fileID->URI index key.
func KeyFileIDAndURI(fileID uint64, uri string) []byte {
	buf := []byte{byte(TagFileIDAndURI)}
	buf = appendUvarint(buf, fileID)
	buf = appendLPString(buf, uri)
	return buf
}

// PrefixFileIDAndURI builds the key prefix for all URIs of fileID.
func PrefixFileIDAndURI(fileID uint64) []byte {
	buf := []byte{byte(TagFileIDAndURI)}
	return appendUvarint(buf, fileID)
}

// ParseKeyFileIDAndURI decodes a full TagFileIDAndURI key into its
// (fileID, uri) pair, independent of any expected value.
func ParseKeyFileIDAndURI(key []byte) (fileID uint64, uri string) {
	rest := key[1:]
	fileID, rest = readUvarint(rest)
	uri, _ = readLPString(rest)
	return fileID, uri
}

// KeyURIAndFileID builds the reverse URI->fileID index key.
func KeyURIAndFileID(uri string, fileID uint64) []byte {
	buf := []byte{byte(TagURIAndFileID)}
	buf = appendLPString(buf, uri)
	buf = appendUvarint(buf, fileID)
	return buf
}

// PrefixURIAndFileID builds the key prefix for all files registered under uri.
func PrefixURIAndFileID(uri string) []byte {
	buf := []byte{byte(TagURIAndFileID)}
	return appendLPString(buf, uri)
}

// ParseKeyURIAndFileID decodes the fileID suffix of a TagURIAndFileID key
// once the uri prefix has already been matched.
func ParseKeyURIAndFileID(key []byte, uri string) (fileID uint64, ok bool) {
	rest := key[1:]
	gotURI, rest := readLPString(rest)
	if gotURI != uri {
		return 0, false
	}
	fileID, _ = readUvarint(rest)
	return fileID, true
}

// KeyUserByID builds the TagUserByID key for userID.
func KeyUserByID(userID uint64) []byte {
	buf := []byte{byte(TagUserByID)}
	return appendUvarint(buf, userID)
}

// ValUser encodes a user record's value.
func ValUser(username, passhash string, mode uint32, parentUserID uint64, createdAt int64) []byte {
	var buf []byte
	buf = appendLPString(buf, username)
	buf = appendLPString(buf, passhash)
	buf = appendUvarint(buf, uint64(mode))
	buf = appendUvarint(buf, parentUserID)
	buf = appendUvarint(buf, uint64(createdAt))
	return buf
}

// ParseValUser decodes a user record's value.
func ParseValUser(val []byte) (username, passhash string, mode uint32, parentUserID uint64, createdAt int64) {
	username, val = readLPString(val)
	passhash, val = readLPString(val)
	m, val := readUvarint(val)
	mode = uint32(m)
	parentUserID, val = readUvarint(val)
	ts, _ := readUvarint(val)
	createdAt = int64(ts)
	return
}

// ValUserID encodes a bare userID value.
func ValUserID(userID uint64) []byte {
	return appendUvarint(nil, userID)
}

// ParseValUserID decodes a bare userID value.
func ParseValUserID(val []byte) uint64 {
	v, _ := readUvarint(val)
	return v
}

// KeyUserIDByName builds the TagUserIDByName key for username.
func KeyUserIDByName(username string) []byte {
	buf := []byte{byte(TagUserIDByName)}
	return append(buf, username...)
}

// KeyTargetURIAndMetaFileID builds a target-URI -> meta-file index key.
func KeyTargetURIAndMetaFileID(targetURI string, metaFileID uint64) []byte {
	buf := []byte{byte(TagTargetURIAndMetaFileID)}
	buf = appendLPString(buf, targetURI)
	buf = appendUvarint(buf, metaFileID)
	return buf
}

// PrefixTargetURIAndMetaFileID builds the key prefix for all meta-files
// targeting targetURI.
func PrefixTargetURIAndMetaFileID(targetURI string) []byte {
	buf := []byte{byte(TagTargetURIAndMetaFileID)}
	return appendLPString(buf, targetURI)
}

// ParseKeyTargetURIAndMetaFileID decodes the metaFileID suffix once the
// targetURI prefix has already been matched.
func ParseKeyTargetURIAndMetaFileID(key []byte) (metaFileID uint64) {
	rest := key[1:]
	_, rest = readLPString(rest)
	metaFileID, _ = readUvarint(rest)
	return metaFileID
}

// KeyMetaFileIDFieldAndValue builds a (metaFileID, field) -> value index key.
func KeyMetaFileIDFieldAndValue(metaFileID uint64, field, value string) []byte {
	buf := []byte{byte(TagMetaFileIDFieldAndValue)}
	buf = appendUvarint(buf, metaFileID)
	buf = appendLPString(buf, field)
	buf = appendLPString(buf, value)
	return buf
}

// PrefixMetaFileIDField builds the key prefix for all values of
// (metaFileID, field).
func PrefixMetaFileIDField(metaFileID uint64, field string) []byte {
	buf := []byte{byte(TagMetaFileIDFieldAndValue)}
	buf = appendUvarint(buf, metaFileID)
	return appendLPString(buf, field)
}

// ParseKeyMetaFileIDFieldAndValue decodes the value suffix once the
// (metaFileID, field) prefix has already been matched.
func ParseKeyMetaFileIDFieldAndValue(key []byte, metaFileID uint64, field string) (value string) {
	rest := key[1:]
	_, rest = readUvarint(rest)
	_, rest = readLPString(rest)
	value, _ = readLPString(rest)
	return value
}
