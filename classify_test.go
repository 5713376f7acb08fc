package qrseal

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	c := newTestClient(t)
	publicText := publicKeyText(t, c)
	chunks, err := c.Seal(publicKeyText(t, newTestClient(t)), []byte("x"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	tests := []struct {
		name string
		text string
		want TextKind
	}{
		{"public key", publicText, TextPublicKey},
		{"public key lowercase", strings.ToLower(publicText), TextPublicKey},
		{"secret key", "QSSK:ABC", TextSecretKey},
		{"chunk", chunks[0], TextChunk},
		{"chunk with line breaks", "\n" + chunks[0] + "\r\n", TextChunk},
		{"empty", "", TextUnknown},
		{"url", "https://example.com", TextUnknown},
		{"prefix without colon", "QSPK", TextUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextKind_String(t *testing.T) {
	tests := []struct {
		kind TextKind
		want string
	}{
		{TextUnknown, "unknown"},
		{TextPublicKey, "public key"},
		{TextSecretKey, "secret key"},
		{TextChunk, "message chunk"},
		{TextKind(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("TextKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
