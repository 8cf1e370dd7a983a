package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"garudarush/internal/models"
)

// RedisClient keeps the per-session record log (the dashboard's
// "database" panel): every traffic sample and alert is appended as a
// numbered record and can be exported as JSON. Monitoring state itself
// is never persisted here.
type RedisClient struct {
	client    *redis.Client
	ctx       context.Context
	retention time.Duration
}

func NewRedisClient(addr string, password string, db int, retention time.Duration) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client:    client,
		ctx:       ctx,
		retention: retention,
	}, nil
}

func recordsKey(sessionID string) string { return "session:" + sessionID + ":records" }
func seqKey(sessionID string) string     { return "session:" + sessionID + ":records:seq" }
func countsKey(sessionID string) string  { return "session:" + sessionID + ":records:counts" }

// StoreTraffic appends a traffic record to the session log.
func (r *RedisClient) StoreTraffic(sessionID string, sample models.TrafficSample) error {
	return r.storeRecord(sessionID, "traffic", sample.Timestamp, sample)
}

// StoreAlert appends an alert record to the session log.
func (r *RedisClient) StoreAlert(sessionID string, alert models.Alert) error {
	return r.storeRecord(sessionID, "alert", alert.Timestamp, alert)
}

func (r *RedisClient) storeRecord(sessionID, recordType string, ts time.Time, data interface{}) error {
	id, err := r.client.Incr(r.ctx, seqKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate record id: %w", err)
	}

	record := models.StoredRecord{
		ID:        id,
		Timestamp: ts,
		Type:      recordType,
		Data:      data,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	key := recordsKey(sessionID)

	// Add to sorted set with timestamp as score
	if err := r.client.ZAdd(r.ctx, key, redis.Z{
		Score:  float64(ts.Unix()),
		Member: string(payload),
	}).Err(); err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.HIncrBy(r.ctx, countsKey(sessionID), recordType, 1)
	pipe.HIncrBy(r.ctx, countsKey(sessionID), "total", 1)

	// Drop records past the retention window
	if r.retention > 0 {
		cutoff := float64(time.Now().Add(-r.retention).Unix())
		pipe.ZRemRangeByScore(r.ctx, key, "-inf", fmt.Sprintf("%f", cutoff))
	}

	pipe.Expire(r.ctx, key, 24*time.Hour)
	pipe.Expire(r.ctx, seqKey(sessionID), 24*time.Hour)
	pipe.Expire(r.ctx, countsKey(sessionID), 24*time.Hour)

	_, err = pipe.Exec(r.ctx)
	return err
}

// RecordCounts returns the running record totals for the storage panel.
// Counts survive retention trimming: they track everything ever stored.
func (r *RedisClient) RecordCounts(sessionID string) (models.RecordCounts, error) {
	data, err := r.client.HGetAll(r.ctx, countsKey(sessionID)).Result()
	if err != nil {
		return models.RecordCounts{}, err
	}

	var counts models.RecordCounts
	fmt.Sscanf(data["total"], "%d", &counts.Total)
	fmt.Sscanf(data["traffic"], "%d", &counts.Traffic)
	fmt.Sscanf(data["alert"], "%d", &counts.Alerts)
	return counts, nil
}

// ExportPayload mirrors the dashboard's JSON download format.
type ExportPayload struct {
	ExportTime   time.Time             `json:"export_time"`
	SessionID    string                `json:"session_id"`
	TotalRecords int                   `json:"total_records"`
	Records      []models.StoredRecord `json:"records"`
}

// Export returns every retained record of a session, oldest first.
func (r *RedisClient) Export(sessionID string) (*ExportPayload, error) {
	results, err := r.client.ZRangeByScore(r.ctx, recordsKey(sessionID), &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	records := make([]models.StoredRecord, 0, len(results))
	for _, result := range results {
		var record models.StoredRecord
		if err := json.Unmarshal([]byte(result), &record); err != nil {
			continue
		}
		records = append(records, record)
	}

	return &ExportPayload{
		ExportTime:   time.Now(),
		SessionID:    sessionID,
		TotalRecords: len(records),
		Records:      records,
	}, nil
}

// PublishAlert publishes an alert to subscribers
func (r *RedisClient) PublishAlert(alert models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	return r.client.Publish(r.ctx, "alerts", string(data)).Err()
}

// DeleteSession removes a session's record log and counters.
func (r *RedisClient) DeleteSession(sessionID string) error {
	return r.client.Del(r.ctx, recordsKey(sessionID), seqKey(sessionID), countsKey(sessionID)).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}
