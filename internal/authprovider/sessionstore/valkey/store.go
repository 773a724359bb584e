package sessionvalkey

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/admin-console/internal/serviceerr"
)

type ObjectType string

type store struct {
	valkey valkey.Client
	prefix string
}

func newStore(valkeyClient valkey.Client, prefix string) *store {
	prefix = strings.TrimSuffix(prefix, ":")
	return &store{
		valkey: valkeyClient,
		prefix: prefix,
	}
}

func (s *store) Get(ctx context.Context, objectType ObjectType, objectID string, decodeInto any) error {
	key := s.key(objectType, objectID)
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return serviceerr.ErrNotFound
		}

		return fmt.Errorf("executing get command: %w", err)
	}

	if err := s.decode(bytes, decodeInto); err != nil {
		return fmt.Errorf("decoding %s: %w", objectType, err)
	}

	return nil
}

// Set stores val under the object key. A positive ttl makes the key expire.
func (s *store) Set(ctx context.Context, objectType ObjectType, objectID string, val any, ttl time.Duration) error {
	key := s.key(objectType, objectID)
	bytes, err := s.encode(val)
	if err != nil {
		return fmt.Errorf("encoding data: %w", err)
	}

	cmd := s.valkey.B().Set().Key(key).Value(valkey.BinaryString(bytes))

	var result valkey.ValkeyResult
	if ttl > 0 {
		result = s.valkey.Do(ctx, cmd.PxMilliseconds(ttl.Milliseconds()).Build())
	} else {
		result = s.valkey.Do(ctx, cmd.Build())
	}

	if err := result.Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

// Destroy deletes the object key and reports serviceerr.ErrNotFound when it
// did not exist.
func (s *store) Destroy(ctx context.Context, objectType ObjectType, objectID string) error {
	key := s.key(objectType, objectID)
	deleted, err := s.valkey.Do(ctx, s.valkey.B().Del().Key(key).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	if deleted == 0 {
		return serviceerr.ErrNotFound
	}

	return nil
}

func (s *store) key(objectType ObjectType, objectID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, objectType, objectID)
}

func (s *store) encode(v any) ([]byte, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling json: %w", err)
	}

	return bytes, nil
}

func (s *store) decode(data []byte, into any) error {
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("unmarshaling json: %w", err)
	}

	return nil
}
