package pipeline

// analysisPromptVersion participates in the analysis stage fingerprint,
// invalidating stale checkpoints when the prompt changes.
const analysisPromptVersion = "analysis-v1"

const analysisResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {
      "type": "array",
      "items": {"type": "string"}
    },
    "decisions": {
      "type": "array",
      "items": {"type": "string"}
    },
    "action_items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "task": {"type": "string"},
          "owner": {"type": "string"},
          "due_date": {"type": "string"}
        },
        "required": ["task"],
        "additionalProperties": false
      }
    }
  },
  "required": ["summary", "decisions", "action_items"],
  "additionalProperties": false
}`

const analysisPromptTemplate = `You are analyzing a meeting transcript. Speakers are labeled SPEAKER_00, SPEAKER_01, and so on.

Produce a JSON object with:
- "summary": 3-8 bullet strings covering the purpose and outcome of the meeting.
- "decisions": each concrete decision that was made, as a short declarative sentence. Empty array if none.
- "action_items": each commitment someone made, with "task" (required), "owner" (speaker label or name if stated, else omit), and "due_date" (ISO date if stated, else omit). Empty array if none.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Include only decisions and action items explicitly supported by the transcript. Do not hallucinate.
- Keep the summary under 200 words.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.`
