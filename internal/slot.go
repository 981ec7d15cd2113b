package internal

import "bytes"

// SlotCount is the number of key slots the cluster key space is divided into.
const SlotCount = 16384

// crc16tab is the CRC16/XMODEM lookup table (poly 0x1021, init 0),
// the checksum used for cluster key slot assignment.
var crc16tab [256]uint16

func init() {
	for i := range crc16tab {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		crc16tab[i] = crc
	}
}

func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crc<<8 ^ crc16tab[byte(crc>>8)^b]
	}
	return crc
}

// HashSlot returns the cluster key slot for a key.
// If the key contains a hash tag ("{...}" with a non-empty interior),
// only the tag content is hashed, so related keys can be forced onto
// the same slot.
func HashSlot(key []byte) uint16 {
	if open := bytes.IndexByte(key, '{'); open >= 0 {
		rest := key[open+1:]
		if close := bytes.IndexByte(rest, '}'); close > 0 {
			key = rest[:close]
		}
	}
	return crc16(key) % SlotCount
}
