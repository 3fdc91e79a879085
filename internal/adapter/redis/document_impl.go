package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
	"github.com/user/blocklist-service/pkg/utils"
)

const documentKeyPrefix = "blocklist:document:"

// DocumentRepoImpl stores each document as a Redis hash with "content" and "version" fields.
type DocumentRepoImpl struct {
	client *redis.Client
}

// NewDocumentRepo creates a new instance of DocumentRepoImpl.
func NewDocumentRepo(client *redis.Client) *DocumentRepoImpl {
	return &DocumentRepoImpl{client: client}
}

// generateKey creates a consistent Redis key for a document kind.
func (r *DocumentRepoImpl) generateKey(kind entity.DocumentKind) string {
	return documentKeyPrefix + string(kind)
}

// Get returns the document stored under the kind's hash.
func (r *DocumentRepoImpl) Get(ctx context.Context, kind entity.DocumentKind) (*entity.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, entity.ErrUnknownDocument)
	}
	vals, err := r.client.HMGet(ctx, r.generateKey(kind), "content", "version").Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %v: %w", kind.FileName(), err, repository.ErrRead)
	}
	return decode(kind, vals)
}

// Put overwrites the document. The version check and the write run inside
// WATCH/MULTI, so a concurrent writer aborts the transaction.
func (r *DocumentRepoImpl) Put(ctx context.Context, kind entity.DocumentKind, sites []string, expectedVersion string) (*entity.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, entity.ErrUnknownDocument)
	}
	data, err := utils.EncodeSites(sites)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %v: %w", kind, err, repository.ErrWrite)
	}

	key := r.generateKey(kind)
	var incr *redis.IntCmd
	txf := func(tx *redis.Tx) error {
		if expectedVersion != "" {
			current, err := tx.HGet(ctx, key, "version").Result()
			if errors.Is(err, redis.Nil) {
				current = ""
			} else if err != nil {
				return err
			}
			if current != expectedVersion {
				return fmt.Errorf("%s: expected version %s, found %q: %w", kind, expectedVersion, current, repository.ErrVersionConflict)
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "content", string(data))
			incr = pipe.HIncrBy(ctx, key, "version", 1)
			return nil
		})
		return err
	}

	err = r.client.Watch(ctx, txf, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return nil, fmt.Errorf("%s: concurrent write: %w", kind, repository.ErrVersionConflict)
	case errors.Is(err, repository.ErrVersionConflict):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("writing %s: %v: %w", kind, err, repository.ErrWrite)
	}

	return &entity.Document{Kind: kind, Sites: utils.CloneSites(sites), Version: strconv.FormatInt(incr.Val(), 10)}, nil
}

// Ping checks the Redis connection.
func (r *DocumentRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decode(kind entity.DocumentKind, vals []interface{}) (*entity.Document, error) {
	if len(vals) != 2 || vals[0] == nil {
		return nil, fmt.Errorf("%s: %w", kind.FileName(), repository.ErrNotFound)
	}
	content, _ := vals[0].(string)
	version, _ := vals[1].(string)

	sites, err := utils.DecodeSites([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", kind.FileName(), repository.ErrParse)
	}
	return &entity.Document{Kind: kind, Sites: sites, Version: version}, nil
}
