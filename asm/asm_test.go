package asm

import (
	"bytes"
	"strings"
	"testing"
)

func TestAssembleEncodings(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []byte
	}{
		{
			"int program",
			"INT 5\nINT 7\nPLUS\nPRINTLN\nSTOP\n",
			[]byte{0x02, 0x00, 0x05, 0x02, 0x00, 0x07, 0x09, 0x34, 0x00},
		},
		{
			"negative int",
			"INT -1\nSTOP\n",
			[]byte{0x02, 0xFF, 0xFF, 0x00},
		},
		{
			"string with terminator",
			"STRING \"hi\"\nSTOP\n",
			[]byte{0x03, 'h', 'i', 0x00, 0x00},
		},
		{
			"char quoted and var name",
			"CHAR 'a'\nSET x\nSTOP\n",
			[]byte{0x01, 'a', 0x05, 'x', 0x00},
		},
		{
			"comments and blanks",
			"; header\n\nSTOP ; trailing\n",
			[]byte{0x00},
		},
		{
			"float msb first",
			"FLOAT 1.0\nSTOP\n",
			[]byte{0x04, 0x3F, 0x80, 0x00, 0x00, 0x00},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Assemble(tc.src)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("got % X\nwant % X", got, tc.want)
			}
		})
	}
}

func TestAssembleErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"unknown mnemonic", "BOGUS\nSTOP\n", "unknown mnemonic"},
		{"missing stop", "INT 1\n", "does not end with STOP"},
		{"empty", "; nothing\n", "empty program"},
		{"operand on bare opcode", "PLUS 1\nSTOP\n", "unexpected operand"},
		{"bad int", "INT ten\nSTOP\n", "bad INT operand"},
		{"unquoted string", "STRING hi\nSTOP\n", "bad STRING operand"},
		{"string with nul", "STRING \"a\\x00b\"\nSTOP\n", "zero byte"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(tc.src)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %v, want %q", err, tc.want)
			}
		})
	}
}

func TestAssembleCaseInsensitiveMnemonics(t *testing.T) {
	a, err := Assemble("int 3\nprintln\nstop\n")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Assemble("INT 3\nPRINTLN\nSTOP\n")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("case sensitivity: % X vs % X", a, b)
	}
}
