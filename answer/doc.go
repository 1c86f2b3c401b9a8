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

// Package answer turns a user message into a grounded reply.
//
// The Orchestrator runs each message through the prompt stages in a fixed
// order:
//
//	router -> conversational reply
//	router -> refiner -> retriever -> synthesizer -> suggestions
//
// Router output that names neither label (or both) gets a fixed clarification
// reply. A failure in any required stage yields a fixed apology; a failure in
// suggestion generation only empties the suggestion list. Every exchange,
// including fixed replies, is appended to the session's conversation.
package answer
