package queue

import "fmt"

// Coordination key names. Each queue-scoped key is tagged with the queue
// name in Redis Cluster hash-tag braces so the Ring (see ring.go) always
// places a queue's key families on one shard, keeping the Lua scripts in
// scripts.go single-shard and atomic. The poison key is tagged with the
// job id.

func waitingKey(queue string) string {
	return fmt.Sprintf("waiting:{%s}", queue)
}

func processingKey(queue string) string {
	return fmt.Sprintf("processing:{%s}", queue)
}

func delayedKey(queue string) string {
	return fmt.Sprintf("delayed:{%s}", queue)
}

func dlqKey(queue string) string {
	return fmt.Sprintf("dlq:{%s}", queue)
}

func poisonKey(jobID string) string {
	return fmt.Sprintf("poison:{%s}", jobID)
}
