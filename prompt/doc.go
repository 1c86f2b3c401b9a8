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

// Package prompt defines the prompt stages of the answer pipeline.
//
// A Stage is an immutable value: a named template with declared slots,
// optional constant (partial) slot values, and an optional document template
// used to fold retrieved passages into a context slot. Running a stage
// renders it and performs exactly one language model call.
//
//	out, err := prompt.Router(company).Run(ctx, lm, map[string]any{"input": msg})
//
// Rendering uses langchaingo prompt templates in Go template format, so slots
// are written {{.name}}. Required slots are checked before rendering and a
// missing one fails with ErrMissingSlot instead of rendering "<no value>".
package prompt
