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

package prompt

import "errors"

var (
	// ErrMissingSlot indicates a required slot had no value.
	ErrMissingSlot = errors.New("missing prompt slot")

	// ErrRenderFailed indicates the template could not be rendered.
	ErrRenderFailed = errors.New("prompt render failed")

	// ErrNoDocumentTemplate indicates RunWithDocuments on a stage without one.
	ErrNoDocumentTemplate = errors.New("stage has no document template")
)
