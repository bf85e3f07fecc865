package summary

// Type selects the summary format.
type Type string

const (
	TypeTransfer Type = "transfer"
	TypeDetailed Type = "detailed"
	TypeBrief    Type = "brief"
)

const baseInstructions = `You are an AI assistant specialized in generating concise, actionable call summaries for warm transfers in customer service environments.
Your task is to analyze the conversation and create a summary that will help the receiving agent (Agent B) understand the context and continue the conversation seamlessly.`

const transferFormat = `
WARM TRANSFER SUMMARY FORMAT:

Create a structured summary with the following sections:

1. CALLER PROFILE:
   - Name and key identifying information
   - Account/reference numbers if mentioned
   - Contact preferences or constraints

2. REASON FOR CALL:
   - Primary issue or request
   - Urgency level (Low/Medium/High)
   - Category (Support, Sales, Billing, etc.)

3. CONVERSATION HIGHLIGHTS:
   - Key points discussed
   - Solutions attempted by Agent A
   - Customer reactions and responses

4. CURRENT STATUS:
   - Where the conversation stands
   - What has been resolved/unresolved
   - Next steps needed

5. TRANSFER CONTEXT:
   - Why the transfer is occurring
   - What Agent B should focus on
   - Any sensitive information to be aware of

Keep the summary concise but comprehensive. Use bullet points for clarity. Limit to 300-400 words total.`

const detailedFormat = `
DETAILED CALL SUMMARY FORMAT:

Provide a comprehensive analysis including:
- Complete conversation timeline
- All topics discussed
- Customer sentiment analysis
- Technical details and specifications
- Follow-up requirements
- Potential upsell/cross-sell opportunities

Be thorough but organized. Use clear headings and bullet points.`

const briefFormat = `
BRIEF TRANSFER SUMMARY FORMAT:

Create a concise 2-3 sentence summary covering:
1. Who is calling and why
2. What has been discussed/attempted
3. What Agent B needs to do next

Keep it under 100 words, focus on actionable information only.`

const genericFormat = `
Provide a clear, professional call summary suitable for agent handoff.`

// systemPrompt returns the system instruction for a summary type. Unknown
// types get the generic handoff instruction.
func systemPrompt(t Type) string {
	switch t {
	case TypeTransfer:
		return baseInstructions + transferFormat
	case TypeDetailed:
		return baseInstructions + detailedFormat
	case TypeBrief:
		return baseInstructions + briefFormat
	default:
		return baseInstructions + genericFormat
	}
}

const questionsPrompt = `You are an AI assistant helping generate relevant follow-up questions for customer service agents.

Based on the call summary provided, generate 3-5 intelligent questions that Agent B should consider asking to:
1. Clarify remaining issues
2. Gather additional needed information
3. Confirm customer understanding
4. Move toward resolution

Format as a simple list of questions, each starting with "- "`

const sentimentPrompt = `Analyze the customer sentiment from the provided conversation messages.

Return a JSON response with:
- sentiment: "positive", "negative", or "neutral"
- confidence: float between 0.0 and 1.0
- analysis: brief explanation of the sentiment analysis
- key_emotions: list of detected emotions`

// fallbackQuestions is served when the model response yields no questions.
var fallbackQuestions = []string{
	"Can you confirm your account information?",
	"What is the main issue you need help with today?",
	"Have you tried any troubleshooting steps already?",
}
