// Package mock provides test doubles for the ai package.
//
// MockEmbedder generates deterministic vectors from text hashes, so tests get
// stable embeddings without a remote service. Behavior can be overridden per
// test via function fields, including simulated rate-limit failures.
package mock
