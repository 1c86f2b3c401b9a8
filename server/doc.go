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

// Package server exposes the assistant over HTTP with gin.
//
// Routes:
//
//	POST /api/chat                       answer a message
//	POST /api/feedback                   record a rating for an answer
//	GET  /api/conversations              list recent conversations
//	GET  /api/conversations/:sessionId   fetch one conversation
//	GET  /health                         liveness
//
// Error bodies are always {"error": "<fixed text>"}; internal error detail is
// logged, never returned.
package server
