package operation

import (
	"encoding/json"
	"fmt"
)

// envelope is the on-disk wrapper around one operation body.
type envelope struct {
	Kind Kind            `json:"type"`
	Body json.RawMessage `json:"body"`
}

// Encode serializes an operation to a single-line JSON record.
//
// Encode and Decode form a bijection over the closed operation set; the
// disk queue relies on round-trip fidelity for crash recovery.
func Encode(op Operation) ([]byte, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s operation: %w", op.Kind(), err)
	}

	data, err := json.Marshal(envelope{Kind: op.Kind(), Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal operation envelope: %w", err)
	}

	return data, nil
}

// Decode deserializes a record produced by Encode.
// An unknown kind or malformed body is an error, never silently skipped.
func Decode(data []byte) (Operation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal operation envelope: %w", err)
	}

	op, err := newByKind(env.Kind)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(env.Body, op); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s operation: %w", env.Kind, err)
	}

	return op, nil
}

// newByKind returns a zero value of the concrete type for a kind.
// The switch is exhaustive over the closed operation set.
func newByKind(kind Kind) (Operation, error) {
	switch kind {
	case KindAssignFloat:
		return &AssignFloat{}, nil
	case KindAssignInt:
		return &AssignInt{}, nil
	case KindAssignBool:
		return &AssignBool{}, nil
	case KindAssignString:
		return &AssignString{}, nil
	case KindAssignDatetime:
		return &AssignDatetime{}, nil
	case KindLogFloats:
		return &LogFloats{}, nil
	case KindLogStrings:
		return &LogStrings{}, nil
	case KindClearFloatLog:
		return &ClearFloatLog{}, nil
	case KindClearStringLog:
		return &ClearStringLog{}, nil
	case KindAddStrings:
		return &AddStrings{}, nil
	case KindRemoveStrings:
		return &RemoveStrings{}, nil
	case KindClearStringSet:
		return &ClearStringSet{}, nil
	case KindDelete:
		return &Delete{}, nil
	case KindCopy:
		return &Copy{}, nil
	default:
		return nil, fmt.Errorf("unknown operation kind %q", kind)
	}
}
