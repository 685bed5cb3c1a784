package util

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
)

func randBytes(n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return buf
}

// RandHex returns a random lower-case hex string encoding n random bytes.
func RandHex(n int) string { return hex.EncodeToString(randBytes(n)) }

// RandUint32 returns a random unsigned 32-bit number.
func RandUint32() uint32 { return binary.BigEndian.Uint32(randBytes(4)) }
