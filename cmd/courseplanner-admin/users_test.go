package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func fakeReader(inputs ...string) func(int) ([]byte, error) {
	return func(int) ([]byte, error) {
		if len(inputs) == 0 {
			return nil, errors.New("no more input")
		}
		next := inputs[0]
		inputs = inputs[1:]
		return []byte(next), nil
	}
}

func TestPromptPassword(t *testing.T) {
	orig := readPassword
	defer func() { readPassword = orig }()

	tests := []struct {
		name    string
		inputs  []string
		wantErr string
	}{
		{"match", []string{"correct-horse", "correct-horse"}, ""},
		{"mismatch", []string{"correct-horse", "correct-horsf"}, "do not match"},
		{"too short", []string{"short"}, "password must be"},
		{"too long", []string{strings.Repeat("x", 73)}, "password must be"},
		{"read error", nil, "no more input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readPassword = fakeReader(tt.inputs...)
			cmd := &cobra.Command{}
			cmd.SetErr(&bytes.Buffer{})

			pwd, err := promptPassword(cmd)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if string(pwd) != tt.inputs[0] {
					t.Errorf("pwd = %q", pwd)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"seed": false, "promote": false, "reset-password": false, "ensure-schema": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
