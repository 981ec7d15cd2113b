package internal

import "testing"

func TestCRC16KnownValue(t *testing.T) {
	// Reference check value for CRC16/XMODEM.
	if got := crc16([]byte("123456789")); got != 0x31C3 {
		t.Errorf("crc16(123456789) = %#04x, want 0x31c3", got)
	}
}

func TestHashSlot(t *testing.T) {
	tests := []struct {
		key  string
		want uint16
	}{
		{"foo", 12182},
		{"bar", 5061},
		{"123456789", 0x31C3 % SlotCount},
	}

	for _, tt := range tests {
		if got := HashSlot([]byte(tt.key)); got != tt.want {
			t.Errorf("HashSlot(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestHashSlotHashTag(t *testing.T) {
	// Keys sharing a hash tag map to the same slot.
	a := HashSlot([]byte("{user1000}.following"))
	b := HashSlot([]byte("{user1000}.followers"))
	if a != b {
		t.Errorf("tagged keys hash to different slots: %d vs %d", a, b)
	}
	if a != HashSlot([]byte("user1000")) {
		t.Errorf("tag slot %d differs from bare key slot %d", a, HashSlot([]byte("user1000")))
	}

	// An empty tag means the whole key is hashed.
	if got, want := HashSlot([]byte("{}k")), crc16([]byte("{}k"))%SlotCount; got != want {
		t.Errorf("HashSlot({}k) = %d, want %d", got, want)
	}

	// An unterminated tag also falls back to the whole key.
	if got, want := HashSlot([]byte("{open")), crc16([]byte("{open"))%SlotCount; got != want {
		t.Errorf("HashSlot({open) = %d, want %d", got, want)
	}
}
