package infra_redis_snapshot

import (
	"github.com/go-redis/redis"
)

// Driver stores room snapshots as opaque values under a shared key
// prefix. No TTL: the snapshot outlives the room so a later resolve can
// rehydrate it.
type Driver struct {
	client *redis.Client
	key    string
}

func New(
	client *redis.Client,
	key string,
) *Driver {
	return &Driver{
		client: client,
		key:    key,
	}
}

func (d *Driver) Put(key string, value []byte) error {
	if err := d.client.Set(d.getFullKey(key), value, 0).Err(); err != nil {
		return err
	}
	return nil
}

func (d *Driver) Get(key string) ([]byte, bool, error) {
	value, err := d.client.Get(d.getFullKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (d *Driver) getFullKey(key string) string {
	if d.key != "" {
		return d.key + ":" + key
	}
	return key
}
