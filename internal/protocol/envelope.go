package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
)

// Envelope types.
const (
	// TypeJoin asks the server to attach the connection to Board and replay it.
	TypeJoin = "join"
	// TypeBroadcast carries one element message for Board.
	TypeBroadcast = "broadcast"
)

// Envelope is the frame exchanged over the socket. Outbound frames are
// always broadcasts; a replay is a broadcast whose Data carries the whole
// board as its children.
type Envelope struct {
	Type  string          `json:"type"`
	Board string          `json:"board"`
	Data  *domain.Element `json:"data,omitempty"`
}

// NewBroadcast builds a broadcast frame.
func NewBroadcast(board string, data *domain.Element) *Envelope {
	return &Envelope{Type: TypeBroadcast, Board: board, Data: data}
}

// NewReplay builds the frame that delivers a full board to one participant.
func NewReplay(board string, elements []*domain.Element) *Envelope {
	if elements == nil {
		elements = []*domain.Element{}
	}
	return NewBroadcast(board, &domain.Element{Children: elements})
}

// Join builds a join request.
func Join(board string) *Envelope {
	return &Envelope{Type: TypeJoin, Board: board}
}

// DecodeEnvelope parses one frame and checks its type.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, domain.ErrInvalidMessage.WithCause(err)
	}
	switch env.Type {
	case TypeJoin:
	case TypeBroadcast:
		if env.Data == nil {
			return nil, domain.ErrInvalidMessage.WithDetails("broadcast without data")
		}
	default:
		return nil, domain.ErrInvalidMessage.WithDetails(fmt.Sprintf("unknown envelope type %q", env.Type))
	}
	return &env, nil
}
