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

// Router labels. The router stage must answer with exactly one of them.
const (
	LabelQuery          = "occams_query"
	LabelConversational = "conversational"
)

// Slot names shared by the built-in stages.
const (
	SlotInput   = "input"
	SlotContext = "context"
	SlotQAPair  = "qa_pair"
	SlotCompany = "company"
)

// DefaultCompany is the company the assistant answers for.
const DefaultCompany = "Occams Advisory"

const routerTemplate = `Classify the user's intent as "` + LabelQuery + `" or "` + LabelConversational + `". ` +
	`Use "` + LabelQuery + `" for any question about {{.company}}, its services, people or business. ` +
	`Use "` + LabelConversational + `" for greetings and small talk. Respond with ONLY one of these two words.
Input: "{{.input}}"
Classification:`

const conversationalSystem = `You are a friendly, professional AI assistant for {{.company}}. ` +
	`Respond warmly and briefly to greetings, then guide the user towards the company's services.`

const refinerTemplate = `You are a prompt engineer. Rewrite the user's question into a clear, specific query ` +
	`for a vector database search about {{.company}}, a financial advisory firm.
Original question: "{{.input}}"
Refined query:`

const synthesizerTemplate = `You are a senior analyst at {{.company}}. Provide a comprehensive, well-structured answer ` +
	`to the user's question using ONLY the provided context. Use bullet points for clarity. ` +
	`If the answer is not in the context, state that clearly.

Context:
{{.context}}

Question: {{.input}}

Detailed Answer:`

const suggestionTemplate = `Based on the provided Q&A, generate three insightful follow-up questions. ` +
	`Return ONLY a valid JSON object with a single key "suggestions" which is an array of three strings.

Q&A Topic:
{{.qa_pair}}

JSON Output:`

// Router classifies a raw user message as a company query or conversation.
func Router(company string) Stage {
	return New("router", routerTemplate, SlotInput).
		WithPartial(SlotCompany, company)
}

// Conversational answers greetings and small talk.
func Conversational(company string) Stage {
	return New("conversational", "{{.input}}", SlotInput).
		WithSystem(conversationalSystem).
		WithPartial(SlotCompany, company)
}

// QueryRefiner rewrites a question into a retrieval query.
func QueryRefiner(company string) Stage {
	return New("refiner", refinerTemplate, SlotInput).
		WithPartial(SlotCompany, company)
}

// Synthesizer answers a refined query from retrieved passages only.
// Run it with RunWithDocuments.
func Synthesizer(company string) Stage {
	return New("synthesizer", synthesizerTemplate, SlotInput, SlotContext).
		WithPartial(SlotCompany, company).
		WithDocuments("{{.text}}", "\n\n", SlotContext)
}

// SuggestionGenerator proposes follow-up questions for a Q&A pair.
func SuggestionGenerator() Stage {
	return New("suggestions", suggestionTemplate, SlotQAPair).
		WithJSONMode()
}

// QAPair formats the suggestion generator's qa_pair slot.
func QAPair(question, answer string) string {
	return "Question: " + question + "\nAnswer: " + answer
}
