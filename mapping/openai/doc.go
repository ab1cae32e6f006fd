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


// Package openai provides a Mapping Service backed by OpenAI-compatible chat APIs.
//
// This package implements the mapping.Service interface using the langchaingo
// library to communicate with OpenAI or OpenAI-compatible services (such as
// Ollama, LocalAI, or vLLM).
//
// # Usage
//
//	config := mapping.NewConfig(
//	    mapping.WithProvider(mapping.ProviderOpenAI),
//	    mapping.WithHost("http://localhost:11434"), // /v1 added automatically
//	    mapping.WithModel("qwen2.5:3b"),
//	)
//
//	svc, err := openai.New(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	text, err := svc.Map(ctx, mapping.SchemaTemplate, rowJSON)
//
// When neither Host nor APIKey is set, the client talks to api.openai.com and
// reads the key from the OPENAI_API_KEY environment variable.
package openai
