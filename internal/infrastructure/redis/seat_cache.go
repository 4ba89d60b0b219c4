package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// 世代が一致する場合のみ座席表を保存する
var setIfVersionScript = redis.NewScript(`
	if (redis.call("GET", KEYS[2]) or "0") ~= ARGV[2] then
		return 0
	end
	if tonumber(ARGV[3]) > 0 then
		redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
	else
		redis.call("SET", KEYS[1], ARGV[1])
	end
	return 1
`)

// SeatMapCache はセクションの座席表をキャッシュする
// 座席の状態が変わったセクションは Invalidate で破棄し、世代を進める
// Set は読み込み前に取得した世代が最新の場合のみ書き込むため、
// 破棄より前に読んだ古い座席表が書き戻されることはない
type SeatMapCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewSeatMapCache は新しいSeatMapCacheインスタンスを作成する
func NewSeatMapCache(client redis.Cmdable, ttl time.Duration) *SeatMapCache {
	return &SeatMapCache{client: client, ttl: ttl}
}

// Get はセクションの座席表をキャッシュから取得する
func (c *SeatMapCache) Get(ctx context.Context, sectionID int64) (*seat.SectionMap, error) {
	data, err := c.client.Get(ctx, seatMapKey(sectionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	var m seat.SectionMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("キャッシュの復元に失敗: %w", err)
	}
	return &m, nil
}

// Version はセクションの現在の世代を返す
func (c *SeatMapCache) Version(ctx context.Context, sectionID int64) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(sectionID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("キャッシュ世代の取得に失敗: %w", err)
	}
	return v, nil
}

// Set は世代 version で読み込んだ座席表を保存する
// その後に Invalidate されていた場合は保存せず false を返す
func (c *SeatMapCache) Set(ctx context.Context, m *seat.SectionMap, version int64) (bool, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return false, fmt.Errorf("キャッシュのシリアライズに失敗: %w", err)
	}
	keys := []string{seatMapKey(m.SectionID), versionKey(m.SectionID)}
	stored, err := setIfVersionScript.Run(ctx, c.client, keys,
		data, strconv.FormatInt(version, 10), c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return stored == 1, nil
}

// Invalidate はセクションのキャッシュを無効化する
func (c *SeatMapCache) Invalidate(ctx context.Context, sectionIDs ...int64) error {
	if len(sectionIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range sectionIDs {
			pipe.Incr(ctx, versionKey(id))
			pipe.Del(ctx, seatMapKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func seatMapKey(sectionID int64) string {
	return fmt.Sprintf("seat-reservation:seatmap:%d", sectionID)
}

func versionKey(sectionID int64) string {
	return fmt.Sprintf("seat-reservation:seatmap:%d:version", sectionID)
}
