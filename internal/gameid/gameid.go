// Package gameid mints the identifiers used for players, sessions and
// escrow references: UUIDv7 values rendered as 26 characters of Crockford
// base32, so ids are unique across tables and sort by creation time.
package gameid

import (
	"crypto/rand"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Generate returns a new 26-character id.
func Generate() string {
	var u [16]byte

	// UUIDv7: 48-bit millisecond timestamp, then random bits with the
	// version and variant fields stamped in.
	ms := uint64(time.Now().UnixMilli())
	u[0] = byte(ms >> 40)
	u[1] = byte(ms >> 32)
	u[2] = byte(ms >> 24)
	u[3] = byte(ms >> 16)
	u[4] = byte(ms >> 8)
	u[5] = byte(ms)
	if _, err := rand.Read(u[6:]); err != nil {
		panic("gameid: " + err.Error())
	}
	u[6] = (u[6] & 0x0f) | 0x70 // version 7
	u[8] = (u[8] & 0x3f) | 0x80 // RFC 4122 variant

	return encode(u)
}

// encode renders the 128 bits as base32, two zero bits of left padding
// bringing them to an even 26 characters.
func encode(u [16]byte) string {
	out := make([]byte, 0, 26)
	acc, bits := uint(0), uint(2)
	for _, b := range u {
		acc = acc<<8 | uint(b)
		bits += 8
		for bits >= 5 {
			out = append(out, alphabet[(acc>>(bits-5))&0x1f])
			bits -= 5
		}
	}
	return string(out)
}
