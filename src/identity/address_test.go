package identity

import (
	"testing"
)

func TestString(t *testing.T) {
	a := Address(0x00144F0100001A2B)
	if s := a.String(); s != "0014.4F01.0000.1A2B" {
		t.Fatalf("String should be 0014.4F01.0000.1A2B, not %s", s)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		in       string
		expected Address
	}{
		{"0014.4F01.0000.1A2B", 0x00144F0100001A2B},
		{"14.4f01.0.1a2b", 0x00144F0100001A2B},
		{"0x00144F0100001A2B", 0x00144F0100001A2B},
		{"20", 20},
		{" 10 ", 10},
		{"18446744073709551615", Address(^uint64(0))},
	}

	for _, c := range cases {
		a, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		if a != c.expected {
			t.Fatalf("Parse(%q) should be %v, not %v", c.in, c.expected, a)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "0014.4F01.0000", "0014.4F01.0000.1A2B3", "xyz", "0014.GGGG.0000.0000", "1..2.3"} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q) should fail", in)
		}
	}
}

func TestParseStringRoundTrip(t *testing.T) {
	for _, a := range []Address{0, 1, 0xFFFF, 0xDEADBEEFCAFEBABE, Address(^uint64(0))} {
		b, err := Parse(a.String())
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Fatalf("Parse(String(%d)) should be %d, not %d", a, a, b)
		}
	}
}

func TestFromEUI48(t *testing.T) {
	a, err := FromEUI48([]byte{0x00, 0x14, 0x4F, 0x01, 0x02, 0x03})
	if err != nil {
		t.Fatal(err)
	}
	if a != 0x00144FFFFE010203 {
		t.Fatalf("FromEUI48 should be 0x00144FFFFE010203, not %#x", uint64(a))
	}

	if _, err := FromEUI48([]byte{1, 2, 3}); err == nil {
		t.Fatal("FromEUI48 should reject short hardware addresses")
	}
}

func TestHardwareAddressStable(t *testing.T) {
	if HardwareAddress() != HardwareAddress() {
		t.Fatal("HardwareAddress should be stable within a process")
	}
}
