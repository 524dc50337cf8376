// Package embeddings implements C2's embed half (spec §4.2): turning text
// into vectors. A Provider tries a remote langchaingo-backed embedder first
// and falls back, call by call, to a local FastEmbed model when the remote
// API is unavailable; an outer cache short-circuits both on a SHA-256 cache
// hit. internal/vectorstore is the only caller, and only falls further back
// to keyword overlap once both embedding tiers here have failed.
package embeddings
