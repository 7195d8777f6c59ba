package domain

// KeyPrefix namespaces every key this service writes to Valkey.
const KeyPrefix = "personarec:"

// DefaultEmbeddingDimensions matches text-embedding-3-small and ada-002.
const DefaultEmbeddingDimensions = 1536
