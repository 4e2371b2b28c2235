package chain

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSelectorShapeAndStability(t *testing.T) {
	s1 := selector(sigHasJoined)
	s2 := selector(sigHasJoined)
	if len(s1) != 4 {
		t.Fatalf("selector length = %d", len(s1))
	}
	if !bytes.Equal(s1, s2) {
		t.Fatal("selector is not deterministic")
	}
	if bytes.Equal(selector(sigHasJoined), selector(sigTotalJoined)) {
		t.Fatal("distinct signatures collided")
	}
}

func TestPackAddress(t *testing.T) {
	word, err := packAddress("0x00000000000000000000000000000000DeaDBeef")
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(word) != 32 {
		t.Fatalf("word length = %d", len(word))
	}
	if hex.EncodeToString(word[28:]) != "deadbeef" {
		t.Fatalf("tail = %x", word[28:])
	}
	for _, b := range word[:12] {
		if b != 0 {
			t.Fatalf("padding not zero: %x", word[:12])
		}
	}

	if _, err := packAddress("0x1234"); err == nil {
		t.Fatal("short address accepted")
	}
}

func TestPackString(t *testing.T) {
	out := packString("alice")
	if len(out) != 96 {
		t.Fatalf("length = %d, want head+len+one data word", len(out))
	}
	if out[31] != 0x20 {
		t.Fatalf("offset word = %x", out[:32])
	}
	if out[63] != 5 {
		t.Fatalf("length word = %x", out[32:64])
	}
	if string(out[64:69]) != "alice" {
		t.Fatalf("data = %q", out[64:69])
	}

	// 32-byte handle needs no extra padding word
	if got := len(packString(strings.Repeat("a", 32))); got != 96 {
		t.Fatalf("exact word length = %d", got)
	}
}

func TestUnpackBool(t *testing.T) {
	trueWord := "0x" + strings.Repeat("0", 63) + "1"
	falseWord := "0x" + strings.Repeat("0", 64)

	if v, err := unpackBool(trueWord); err != nil || !v {
		t.Fatalf("true word: %v %v", v, err)
	}
	if v, err := unpackBool(falseWord); err != nil || v {
		t.Fatalf("false word: %v %v", v, err)
	}
	if _, err := unpackBool("0x01"); err == nil {
		t.Fatal("short data accepted")
	}
}

func TestUnpackUint(t *testing.T) {
	word := "0x" + strings.Repeat("0", 60) + "2710" // 10000
	n, err := unpackUint(word)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if n != 10000 {
		t.Fatalf("n = %d", n)
	}
}
