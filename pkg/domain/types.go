package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type (
	UUIDArray []uuid.UUID
	JSONMap   map[string]interface{}
)

func (u UUIDArray) Value() (driver.Value, error) {
	if len(u) == 0 {
		return "{}", nil
	}

	strs := make([]string, len(u))
	for i, id := range u {
		strs[i] = id.String()
	}

	return pq.Array(strs).Value()
}

func (u *UUIDArray) Scan(value interface{}) error {
	if value == nil {
		*u = nil
		return nil
	}

	var strs []string
	if err := pq.Array(&strs).Scan(value); err != nil {
		return fmt.Errorf("failed to scan UUID array: %w", err)
	}

	uuids := make([]uuid.UUID, len(strs))
	for i, str := range strs {
		id, err := uuid.Parse(strings.TrimSpace(str))
		if err != nil {
			return fmt.Errorf("failed to parse UUID %s: %w", str, err)
		}
		uuids[i] = id
	}

	*u = uuids
	return nil
}

func (u UUIDArray) Contains(id uuid.UUID) bool {
	for _, v := range u {
		if v == id {
			return true
		}
	}
	return false
}

func (u UUIDArray) Clone() UUIDArray {
	if u == nil {
		return nil
	}
	out := make(UUIDArray, len(u))
	copy(out, u)
	return out
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, m)
}
