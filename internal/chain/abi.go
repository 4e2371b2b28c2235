package chain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// The monument contract surface:
//
//	function joinMonument(string handle)
//	function hasJoined(address wallet) view returns (bool)
//	function totalJoined() view returns (uint256)
const (
	sigJoinMonument = "joinMonument(string)"
	sigHasJoined    = "hasJoined(address)"
	sigTotalJoined  = "totalJoined()"
)

// selector returns the 4-byte function selector for an ABI signature.
func selector(sig string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	return h.Sum(nil)[:4]
}

// packAddress left-pads a hex address into one 32-byte word.
func packAddress(addr string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(addr), "0x"))
	if err != nil {
		return nil, fmt.Errorf("bad address %q: %w", addr, err)
	}
	if len(raw) != 20 {
		return nil, fmt.Errorf("bad address length %d", len(raw))
	}
	word := make([]byte, 32)
	copy(word[12:], raw)
	return word, nil
}

// packString encodes a single dynamic string argument: head word with the
// data offset, then length word, then right-padded bytes.
func packString(s string) []byte {
	data := []byte(s)
	padded := len(data)
	if rem := padded % 32; rem != 0 {
		padded += 32 - rem
	}

	out := make([]byte, 32+32+padded)
	out[31] = 0x20 // offset of the data section
	big.NewInt(int64(len(data))).FillBytes(out[32:64])
	copy(out[64:], data)
	return out
}

func callDataHasJoined(addr string) (string, error) {
	word, err := packAddress(addr)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(append(selector(sigHasJoined), word...)), nil
}

func callDataJoinMonument(handle string) string {
	return "0x" + hex.EncodeToString(append(selector(sigJoinMonument), packString(handle)...))
}

func callDataTotalJoined() string {
	return "0x" + hex.EncodeToString(selector(sigTotalJoined))
}

// unpackBool reads a bool from one returned word.
func unpackBool(ret string) (bool, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(ret, "0x"))
	if err != nil {
		return false, fmt.Errorf("bad return data: %w", err)
	}
	if len(raw) < 32 {
		return false, fmt.Errorf("short return data (%d bytes)", len(raw))
	}
	return raw[31] != 0, nil
}

// unpackUint reads a uint256 from one returned word; values beyond uint64
// cannot occur for a 10k-capacity counter.
func unpackUint(ret string) (uint64, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(ret, "0x"))
	if err != nil {
		return 0, fmt.Errorf("bad return data: %w", err)
	}
	if len(raw) < 32 {
		return 0, fmt.Errorf("short return data (%d bytes)", len(raw))
	}
	return new(big.Int).SetBytes(raw[:32]).Uint64(), nil
}
