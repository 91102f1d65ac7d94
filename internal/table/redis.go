package table

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps each table in one Redis hash. Fields are
// "{path}\x00{page_number}" and values are the raw page text, so Append
// upserts and text round-trips byte for byte.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client}, nil
}

func redisKey(table string) string {
	return "table:" + table
}

func rowField(r Row) string {
	return r.Path + "\x00" + strconv.Itoa(r.PageNumber)
}

// parseRowField splits a hash field back into path and page number. The
// page number never contains a NUL, so the last one is the separator.
func parseRowField(field string) (string, int, error) {
	i := strings.LastIndexByte(field, 0)
	if i < 0 {
		return "", 0, fmt.Errorf("missing separator")
	}
	page, err := strconv.Atoi(field[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("page number: %w", err)
	}
	return field[:i], page, nil
}

func fieldValues(rows []Row) []any {
	values := make([]any, 0, 2*len(rows))
	for _, r := range rows {
		values = append(values, rowField(r), r.Text)
	}
	return values
}

func (s *RedisStore) Overwrite(ctx context.Context, table string, rows []Row) error {
	if err := validateAll(table, rows); err != nil {
		return err
	}
	values := fieldValues(rows)
	key := redisKey(table)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("overwrite %s: %w", table, err)
	}
	return nil
}

func (s *RedisStore) Append(ctx context.Context, table string, rows []Row) error {
	if err := validateAll(table, rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	values := fieldValues(rows)
	if err := s.client.HSet(ctx, redisKey(table), values...).Err(); err != nil {
		return fmt.Errorf("append %s: %w", table, err)
	}
	return nil
}

func (s *RedisStore) Rows(ctx context.Context, table string) ([]Row, error) {
	if err := ValidateName(table); err != nil {
		return nil, err
	}
	all, err := s.client.HGetAll(ctx, redisKey(table)).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	rows := make([]Row, 0, len(all))
	for field, text := range all {
		path, page, err := parseRowField(field)
		if err != nil {
			return nil, fmt.Errorf("decode %s field %q: %w", table, field, err)
		}
		rows = append(rows, Row{Path: path, PageNumber: page, Text: text})
	}
	sortRows(rows)
	return rows, nil
}

func (s *RedisStore) Count(ctx context.Context, table string) (int, error) {
	if err := ValidateName(table); err != nil {
		return 0, err
	}
	n, err := s.client.HLen(ctx, redisKey(table)).Result()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return int(n), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
