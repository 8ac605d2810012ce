// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package openai implements ai.Embedder over OpenAI-compatible APIs.
//
// The implementation uses the langchaingo library to talk to OpenAI or any
// OpenAI-compatible service (Ollama, LocalAI, vLLM). HTTP 429 responses are
// translated into ai.ErrRateLimited so the ingestion batcher can retry once
// after its cooldown.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost("https://api.openai.com"),  // /v1 added automatically
//	    ai.WithModel("text-embedding-3-small"),
//	    ai.WithToken(apiKey),
//	)
//	embedder, err := openai.NewEmbedder(config)
package openai
