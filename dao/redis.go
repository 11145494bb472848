package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"inbox-triage/model"
)

// 定义错误类型
var (
	ErrInvalidParam = errors.New("invalid parameter")
	ErrMaxRetries   = errors.New("max retries exceeded")
)

const (
	interpKeyPrefix    = "inbox-triage:interp:"
	dailyBudgetPrefix  = "inbox-triage:budget:daily:"
	convoBudgetPrefix  = "inbox-triage:budget:convo:"
	budgetKeyTTL       = 48 * time.Hour
	budgetWatchRetries = 3
	defaultInterpTTL   = 7 * 24 * time.Hour
)

// RedisStore 判读缓存和预算计数的存储
type RedisStore struct {
	client    *redis.Client
	interpTTL time.Duration
}

func NewRedisStore(addr, password string, db int, interpTTL time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if interpTTL <= 0 {
		interpTTL = defaultInterpTTL
	}

	return &RedisStore{
		client:    client,
		interpTTL: interpTTL,
	}
}

// GetInterpretation 按输入哈希取判读缓存，未命中返回nil
func (s *RedisStore) GetInterpretation(ctx context.Context, hash string) (*model.AiInterpretation, error) {
	if hash == "" {
		return nil, fmt.Errorf("%w: hash is empty", ErrInvalidParam)
	}

	data, err := s.client.Get(ctx, interpKeyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var interp model.AiInterpretation
	if err := json.Unmarshal(data, &interp); err != nil {
		return nil, err
	}
	return &interp, nil
}

// SaveInterpretation 写判读缓存
// 相同哈希必然对应相同内容，重复写是幂等的，不加锁
func (s *RedisStore) SaveInterpretation(ctx context.Context, hash string, interp *model.AiInterpretation) error {
	if hash == "" {
		return fmt.Errorf("%w: hash is empty", ErrInvalidParam)
	}
	if interp == nil {
		return fmt.Errorf("%w: interpretation is nil", ErrInvalidParam)
	}

	data, err := json.Marshal(interp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, interpKeyPrefix+hash, data, s.interpTTL).Err()
}

// Counts 读取当天总量和单会话用量
func (s *RedisStore) Counts(ctx context.Context, day, conversationID string) (int64, int64, error) {
	daily, err := s.client.Get(ctx, dailyBudgetPrefix+day).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	convo, err := s.client.Get(ctx, convoBudgetKey(day, conversationID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	return daily, convo, nil
}

// CheckAndIncr 用WATCH事务原子完成预算检查加自增
// 预算线内才计数，并发尝试在key被改写时整体重试
func (s *RedisStore) CheckAndIncr(ctx context.Context, day, conversationID string, dailyLimit, convoLimit int64) (model.BudgetDecision, int64, int64, error) {
	dailyKey := dailyBudgetPrefix + day
	convoKey := convoBudgetKey(day, conversationID)

	var decision model.BudgetDecision
	var daily, convo int64

	for i := 0; i < budgetWatchRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			var err error
			daily, err = tx.Get(ctx, dailyKey).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			convo, err = tx.Get(ctx, convoKey).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			if dailyLimit > 0 && daily >= dailyLimit {
				decision = model.BudgetDecision{Reason: model.SkipDailyBudgetExceeded}
				return nil
			}
			if convoLimit > 0 && convo >= convoLimit {
				decision = model.BudgetDecision{Reason: model.SkipConvoBudgetExceeded}
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Incr(ctx, dailyKey)
				pipe.Expire(ctx, dailyKey, budgetKeyTTL)
				pipe.Incr(ctx, convoKey)
				pipe.Expire(ctx, convoKey, budgetKeyTTL)
				return nil
			})
			if err != nil {
				return err
			}

			daily++
			convo++
			decision = model.BudgetDecision{Allowed: true}
			return nil
		}, dailyKey, convoKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return model.BudgetDecision{}, 0, 0, err
		}
		return decision, daily, convo, nil
	}

	return model.BudgetDecision{}, daily, convo, fmt.Errorf("%w for conversation %s", ErrMaxRetries, conversationID)
}

// Incr 无条件计数，mock/fixture路径成功后补记
func (s *RedisStore) Incr(ctx context.Context, day, conversationID string) (int64, int64, error) {
	dailyKey := dailyBudgetPrefix + day
	convoKey := convoBudgetKey(day, conversationID)

	pipe := s.client.TxPipeline()
	dailyCmd := pipe.Incr(ctx, dailyKey)
	pipe.Expire(ctx, dailyKey, budgetKeyTTL)
	convoCmd := pipe.Incr(ctx, convoKey)
	pipe.Expire(ctx, convoKey, budgetKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return dailyCmd.Val(), convoCmd.Val(), nil
}

func convoBudgetKey(day, conversationID string) string {
	return convoBudgetPrefix + day + ":" + conversationID
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
