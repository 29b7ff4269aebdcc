package chat

import "testing"

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "clean text", in: "bora estudar pra prova?", want: "bora estudar pra prova?"},
		{name: "single word", in: "que droga", want: "que *****"},
		{name: "case insensitive", in: "Que DROGA", want: "Que *****"},
		{name: "multiple words", in: "merda de porra", want: "***** de *****"},
		{name: "whole words only", in: "drogaria da esquina", want: "drogaria da esquina"},
		{name: "keeps punctuation", in: "droga!", want: "*****!"},
		{name: "mask matches length", in: "caralho", want: "*******"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Redact(tt.in); got != tt.want {
				t.Errorf("Redact(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}
