package catalog

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor - позиция книги в порядке каталога (created_at DESC, id DESC).
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

type cursorData struct {
	AfterID   string `json:"after_id"`
	CreatedAt string `json:"created_at"`
}

// EncodeCursor returns an opaque token for the position right after c.
func EncodeCursor(c Cursor) string {
	if c.ID == "" {
		return ""
	}
	data, err := json.Marshal(cursorData{
		AfterID:   c.ID,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token means the first page.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	var data cursorData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if data.AfterID == "" {
		return nil, fmt.Errorf("%w: missing after_id", ErrInvalidCursor)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	return &Cursor{CreatedAt: createdAt, ID: data.AfterID}, nil
}
