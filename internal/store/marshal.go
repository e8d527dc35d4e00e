package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/quotedesk/internal/ledger"
)

// marshalList wraps a slice in the {"list": [...]} envelope.
func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(struct {
		List []T `json:"list"`
	}{items})
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

// unmarshalList reads the {"list": [...]} envelope. Empty text is an empty list.
func unmarshalList[T any](data string) ([]T, error) {
	if data == "" {
		return []T{}, nil
	}
	var env struct {
		List []T `json:"list"`
	}
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	if env.List == nil {
		env.List = []T{}
	}
	return env.List, nil
}

// marshalRFQ stores the RFQ snapshot in canonical form so equal drafts are
// byte-identical in the database.
func marshalRFQ(r ledger.RFQ) (string, error) {
	data, err := ledger.MarshalCanonical(r.Clone())
	if err != nil {
		return "", fmt.Errorf("marshal rfq: %w", err)
	}
	return string(data), nil
}

func unmarshalRFQ(data string) (ledger.RFQ, error) {
	var r ledger.RFQ
	if data == "" {
		return ledger.NewRFQ(), nil
	}
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return ledger.RFQ{}, fmt.Errorf("unmarshal rfq: %w", err)
	}
	return r.Clone(), nil
}

func marshalMakes(m ledger.MakeList) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal makes: %w", err)
	}
	return string(data), nil
}

func unmarshalMakes(data string) (ledger.MakeList, error) {
	var m ledger.MakeList
	if data == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal makes: %w", err)
	}
	return m, nil
}
