// Package pinecone implements index.VectorIndex on Pinecone serverless
// indexes using the official Go client.
//
// Index hosts and data-plane connections are resolved lazily and cached per
// (index, namespace) pair. Metadata filters pass through unchanged; they
// already use Pinecone's filter dialect.
package pinecone
