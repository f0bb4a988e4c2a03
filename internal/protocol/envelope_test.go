package protocol

import (
	"errors"
	"testing"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"join", `{"type":"join","board":"demo"}`, false},
		{"broadcast", `{"type":"broadcast","board":"demo","data":{"id":"l1","type":"line","tool":"Pencil"}}`, false},
		{"broadcast without data", `{"type":"broadcast","board":"demo"}`, true},
		{"unknown type", `{"type":"getboard","board":"demo"}`, true},
		{"not json", `hello`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.in))
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidMessage) {
					t.Fatalf("err = %v, want ErrInvalidMessage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeEnvelope: %v", err)
			}
			if env.Board != "demo" {
				t.Fatalf("Board = %q", env.Board)
			}
		})
	}
}

func TestNewReplay_NilElements(t *testing.T) {
	env := NewReplay("demo", nil)
	if env.Data == nil || env.Data.Children == nil || len(env.Data.Children) != 0 {
		t.Fatalf("replay data = %+v", env.Data)
	}
}
