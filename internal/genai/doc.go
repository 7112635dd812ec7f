// Package genai turns the day's events, tasks and weather into a structured
// plan using the Gemini API.
//
// BuildPrompt renders one fixed prompt that asks for a JSON answer with a
// weather summary, an hourly schedule, hydration breaks and a fact about the
// day. Client.GeneratePlan sends it as a single generateContent request and
// ParsePlan decodes the answer. Answers that are empty, blocked or not
// decodable are reported as a GenerationError; they are never passed on as
// a partial plan.
package genai
