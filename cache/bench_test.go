package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkMemoryBackend_Get_Hit measures cache hit performance.
func BenchmarkMemoryBackend_Get_Hit(b *testing.B) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	_ = backend.Set(ctx, "key", []byte("value"), time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = backend.Get(ctx, "key")
	}
}

// BenchmarkMemoryBackend_Get_Miss measures cache miss performance.
func BenchmarkMemoryBackend_Get_Miss(b *testing.B) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = backend.Get(ctx, "missing")
	}
}

// BenchmarkMemoryBackend_Set measures write performance.
func BenchmarkMemoryBackend_Set(b *testing.B) {
	backend := NewMemoryBackend()
	ctx := context.Background()
	value := []byte("test value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = backend.Set(ctx, fmt.Sprintf("key-%d", i), value, time.Hour)
	}
}

// BenchmarkMemoryBackend_Concurrent_ReadHeavy measures read-heavy workload.
func BenchmarkMemoryBackend_Concurrent_ReadHeavy(b *testing.B) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_ = backend.Set(ctx, fmt.Sprintf("key-%d", i), []byte("value"), time.Hour)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _, _ = backend.Get(ctx, fmt.Sprintf("key-%d", i%100))
			i++
		}
	})
}

// BenchmarkKeyer_Derive measures key derivation.
func BenchmarkKeyer_Derive(b *testing.B) {
	keyer := NewKeyer("ai-cache")
	params := map[string]any{
		"prompt":      "test",
		"temperature": 0.7,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = keyer.Derive("gpt-4", params)
	}
}

// BenchmarkKeyer_Derive_LargeParams measures key derivation with nested params.
func BenchmarkKeyer_Derive_LargeParams(b *testing.B) {
	keyer := NewKeyer("ai-cache")
	params := map[string]any{
		"prompt":      "a longer test prompt with several words",
		"temperature": 0.7,
		"maxTokens":   1024,
		"stop":        []any{"###", "END", "\n\n"},
		"options": map[string]any{
			"topP":             0.9,
			"presencePenalty":  0.1,
			"frequencyPenalty": 0.2,
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = keyer.Derive("gpt-4", params)
	}
}

// BenchmarkKeyer_Derive_Concurrent measures concurrent key derivation.
func BenchmarkKeyer_Derive_Concurrent(b *testing.B) {
	keyer := NewKeyer("ai-cache")
	params := map[string]any{"prompt": "test"}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = keyer.Derive("gpt-4", params)
		}
	})
}

// BenchmarkValidateKey measures key validation.
func BenchmarkValidateKey(b *testing.B) {
	key := "ai-cache:abc123def456"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ValidateKey(key)
	}
}

// BenchmarkEnvelope_Marshal measures envelope serialization.
func BenchmarkEnvelope_Marshal(b *testing.B) {
	env := &Envelope{
		Text:         "a cached response of moderate length for benchmarking",
		FinishReason: "stop",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = env.Marshal()
	}
}
